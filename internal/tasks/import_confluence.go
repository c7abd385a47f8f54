package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"

	"wikiport/internal/entities"
	"wikiport/internal/services"
)

// ImportJobSource loads the job record a queued import task points at.
type ImportJobSource interface {
	GetByID(id uint) (*entities.ImportJob, error)
}

// ImportConfluenceTask runs one Confluence archive import job.
type ImportConfluenceTask struct {
	JobID uint `json:"job_id"`
}

// Config returns the queue configuration for import tasks. Imports are not
// retried: a failed run leaves the job record in a terminal Failed state
// and re-running could duplicate partially imported pages.
func (t ImportConfluenceTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_confluence",
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportConfluenceProcessor creates a processor function for import tasks.
// Each execution gets a fresh run id that the importer records on the job.
func ImportConfluenceProcessor(importer *services.ConfluenceImporter, jobs ImportJobSource) backlite.QueueProcessor[ImportConfluenceTask] {
	return func(ctx context.Context, task ImportConfluenceTask) error {
		if importer == nil {
			return fmt.Errorf("importer not configured")
		}

		job, err := jobs.GetByID(task.JobID)
		if err != nil {
			return fmt.Errorf("load import job %d: %w", task.JobID, err)
		}
		if job.Terminal() {
			log.Printf("[TASK] Import job %d already %s, skipping", job.ID, job.Status)
			return nil
		}

		runID := uuid.NewString()
		summary, err := importer.Run(ctx, job, runID)
		if err != nil {
			return fmt.Errorf("import job %d (run %s): %w", job.ID, runID, err)
		}

		log.Printf("[TASK] Import job %d done: %d pages imported, %d failed, %d attachments",
			job.ID, summary.PagesSucceeded, summary.PagesFailed, summary.AttachmentsSucceeded)
		return nil
	}
}

// NewImportConfluenceQueue creates a backlite queue for import tasks.
func NewImportConfluenceQueue(importer *services.ConfluenceImporter, jobs ImportJobSource) backlite.Queue {
	return backlite.NewQueue(ImportConfluenceProcessor(importer, jobs))
}

// EnqueueImport queues an import task for the given job.
func (c *Client) EnqueueImport(jobID uint) error {
	_, err := c.Add(ImportConfluenceTask{JobID: jobID}).Save()
	return err
}
