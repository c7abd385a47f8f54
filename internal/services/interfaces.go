package services

import (
	"wikiport/internal/entities"
)

// TargetResolver picks the space newly imported pages land in.
// Implemented by database/spaces.Repository.
type TargetResolver interface {
	Resolve(workspaceID, spaceID *uint) (*entities.Space, error)
}

// PageStore persists page records.
// Implemented by database/pages.Repository.
type PageStore interface {
	Exists(originalID string, spaceID uint) (bool, error)
	Create(page *entities.Page) error
	SetParent(pageID, parentID uint) error
	UpdateContent(pageID uint, contentJSON string) error
}

// AttachmentStore persists attachment records.
// Implemented by database/attachments.Repository.
type AttachmentStore interface {
	Create(attachment *entities.Attachment) error
}

// JobRecorder tracks import job state. The orchestrator is its only
// writer.
// Implemented by database/jobs.Repository.
type JobRecorder interface {
	Transition(jobID uint, status entities.JobStatus) error
	SetTaskID(jobID uint, taskID string) error
	SetProgress(jobID uint, p entities.JobProgress) error
	SetError(jobID uint, details string) error
}

// ImportSummary is the outcome of one import run.
type ImportSummary struct {
	PagesSucceeded       int
	PagesFailed          int
	AttachmentsSucceeded int
	Message              string
}
