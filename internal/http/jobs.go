package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wikiport/internal/entities"
)

// JobsController exposes import job status and history.
type JobsController struct {
	Jobs JobStore
}

// NewJobsController creates a new JobsController.
func NewJobsController(jobs JobStore) *JobsController {
	return &JobsController{Jobs: jobs}
}

// JobStatusResponse is the full job record as exposed to clients.
type JobStatusResponse struct {
	JobID                uint   `json:"job_id"`
	Status               string `json:"status"`
	ProgressStatus       string `json:"progress_status"`
	ProgressPercent      int    `json:"progress_percent"`
	PagesSucceeded       int    `json:"pages_succeeded_count"`
	PagesFailed          int    `json:"pages_failed_count"`
	AttachmentsSucceeded int    `json:"attachments_succeeded_count"`
	ProgressMessage      string `json:"progress_message,omitempty"`
	ErrorDetails         string `json:"error_details,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

func jobToResponse(job *entities.ImportJob) JobStatusResponse {
	return JobStatusResponse{
		JobID:                job.ID,
		Status:               string(job.Status),
		ProgressStatus:       string(job.ProgressStatus),
		ProgressPercent:      job.ProgressPercent,
		PagesSucceeded:       job.PagesSucceeded,
		PagesFailed:          job.PagesFailed,
		AttachmentsSucceeded: job.AttachmentsSucceeded,
		ProgressMessage:      job.ProgressMessage,
		ErrorDetails:         job.ErrorDetails,
		CreatedAt:            job.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:            job.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// GetStatus handles GET /api/import/jobs/:id.
func (controller *JobsController) GetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	job, err := controller.Jobs.GetByID(id)
	if err != nil {
		respondNotFound(c, "import job")
		return
	}

	c.JSON(http.StatusOK, jobToResponse(job))
}

// List handles GET /api/import/jobs.
func (controller *JobsController) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	jobs, err := controller.Jobs.List(limit)
	if err != nil {
		respondInternalError(c, err, "list import jobs")
		return
	}

	responses := make([]JobStatusResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, jobToResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": responses})
}
