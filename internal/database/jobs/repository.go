// Package jobs provides database operations for import job records.
//
// This package implements the services.JobRecorder interface: the import
// orchestrator is the only writer of job state; the HTTP layer reads it.
package jobs

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"wikiport/internal/entities"
)

// Repository handles import job database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new jobs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new pending import job.
func (r *Repository) Create(job *entities.ImportJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by id.
func (r *Repository) GetByID(id uint) (*entities.ImportJob, error) {
	var job entities.ImportJob
	if err := r.db.First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns jobs newest-first.
func (r *Repository) List(limit int) ([]entities.ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobList []entities.ImportJob
	err := r.db.Order("created_at DESC").Limit(limit).Find(&jobList).Error
	return jobList, err
}

// Transition moves a job to a new lifecycle status.
func (r *Repository) Transition(jobID uint, status entities.JobStatus) error {
	err := r.db.Model(&entities.ImportJob{}).Where("id = ?", jobID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to transition job %d to %s: %w", jobID, status, err)
	}
	return nil
}

// SetTaskID records the execution handle of the run processing this job.
func (r *Repository) SetTaskID(jobID uint, taskID string) error {
	err := r.db.Model(&entities.ImportJob{}).Where("id = ?", jobID).
		Update("task_id", taskID).Error
	if err != nil {
		return fmt.Errorf("failed to record task id for job %d: %w", jobID, err)
	}
	return nil
}

// SetProgress updates the job's fine-grained progress fields.
func (r *Repository) SetProgress(jobID uint, p entities.JobProgress) error {
	updates := map[string]any{
		"progress_status":       p.Status,
		"progress_percent":      p.Percent,
		"pages_succeeded":       p.PagesSucceeded,
		"pages_failed":          p.PagesFailed,
		"attachments_succeeded": p.AttachmentsSucceeded,
		"progress_message":      p.Message,
	}
	err := r.db.Model(&entities.ImportJob{}).Where("id = ?", jobID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update progress of job %d: %w", jobID, err)
	}
	return nil
}

// SetError records fatal error details on a job.
func (r *Repository) SetError(jobID uint, details string) error {
	err := r.db.Model(&entities.ImportJob{}).Where("id = ?", jobID).
		Update("error_details", details).Error
	if err != nil {
		return fmt.Errorf("failed to record error for job %d: %w", jobID, err)
	}
	return nil
}

// ListTerminalBefore returns completed or failed jobs last updated before
// the cutoff that still have an uploaded archive on disk. The cleanup
// scheduler uses this to reclaim upload space.
func (r *Repository) ListTerminalBefore(cutoff time.Time) ([]entities.ImportJob, error) {
	var jobList []entities.ImportJob
	err := r.db.Where("status IN ? AND updated_at < ? AND archive_path <> ''",
		[]entities.JobStatus{entities.JobStatusCompleted, entities.JobStatusFailed}, cutoff).
		Find(&jobList).Error
	return jobList, err
}

// ClearArchivePath marks a job's uploaded archive as removed.
func (r *Repository) ClearArchivePath(jobID uint) error {
	err := r.db.Model(&entities.ImportJob{}).Where("id = ?", jobID).
		Update("archive_path", "").Error
	if err != nil {
		return fmt.Errorf("failed to clear archive path of job %d: %w", jobID, err)
	}
	return nil
}
