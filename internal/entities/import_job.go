package entities

import "time"

// JobStatus is the coarse lifecycle state of an import job.
// Completed and Failed are terminal.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ProgressStatus is the fine-grained phase an import job is in, surfaced by
// the status API while the job runs.
type ProgressStatus string

const (
	ProgressPending          ProgressStatus = "PENDING"
	ProgressExtracting       ProgressStatus = "EXTRACTING"
	ProgressParsingMetadata  ProgressStatus = "PARSING_METADATA"
	ProgressCreatingPages    ProgressStatus = "CREATING_PAGES"
	ProgressLinkingHierarchy ProgressStatus = "LINKING_HIERARCHY"
	ProgressCompleted        ProgressStatus = "COMPLETED"
	ProgressFailed           ProgressStatus = "FAILED"
)

// ImportJob tracks one archive import from upload to completion. It is
// created when a client submits an archive and mutated only by the import
// orchestrator.
type ImportJob struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ArchivePath string `gorm:"size:1024" json:"-"`
	CreatedBy   string `gorm:"size:100" json:"created_by,omitempty"`

	Status          JobStatus      `gorm:"size:20;default:PENDING;index" json:"status"`
	ProgressStatus  ProgressStatus `gorm:"size:30;default:PENDING" json:"progress_status"`
	ProgressPercent int            `json:"progress_percent"`

	// TaskID is the execution handle recorded when processing starts,
	// kept for traceability between the job record and the queue run.
	TaskID string `gorm:"size:255" json:"task_id,omitempty"`

	TargetWorkspaceID *uint `json:"target_workspace_id,omitempty"`
	TargetSpaceID     *uint `json:"target_space_id,omitempty"`

	PagesSucceeded       int `json:"pages_succeeded"`
	PagesFailed          int `json:"pages_failed"`
	AttachmentsSucceeded int `json:"attachments_succeeded"`

	ProgressMessage string `gorm:"type:text" json:"progress_message,omitempty"`
	ErrorDetails    string `gorm:"type:text" json:"error_details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobProgress is a snapshot of a running job's state, written by the
// orchestrator and surfaced by the status API.
type JobProgress struct {
	Status               ProgressStatus
	Percent              int
	PagesSucceeded       int
	PagesFailed          int
	AttachmentsSucceeded int
	Message              string
}

// Terminal reports whether the job has reached a final state.
func (j *ImportJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
