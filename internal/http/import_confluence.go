package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wikiport/internal/entities"
	"wikiport/internal/utils"
)

// ImportConfluenceController accepts Confluence export archives and queues
// them for background processing.
type ImportConfluenceController struct {
	Jobs      JobStore
	Enqueuer  TaskEnqueuer
	UploadDir string
	MaxBytes  int64
}

// NewImportConfluenceController creates a new ImportConfluenceController.
func NewImportConfluenceController(jobs JobStore, enqueuer TaskEnqueuer, uploadDir string, maxBytes int64) *ImportConfluenceController {
	return &ImportConfluenceController{
		Jobs:      jobs,
		Enqueuer:  enqueuer,
		UploadDir: uploadDir,
		MaxBytes:  maxBytes,
	}
}

// ImportJobResponse is returned when an import job is accepted or queried.
type ImportJobResponse struct {
	JobID           uint   `json:"job_id"`
	Status          string `json:"status"`
	ProgressStatus  string `json:"progress_status,omitempty"`
	ProgressPercent int    `json:"progress_percent"`
}

// Import handles POST /api/import/confluence. The archive arrives as a
// multipart upload; target workspace and space are optional form fields.
// Processing is asynchronous, so the response is 202 with the job id.
func (controller *ImportConfluenceController) Import(c *gin.Context) {
	if controller.Enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "import processing is disabled"})
		return
	}
	if controller.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, controller.MaxBytes)
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		respondBadRequest(c, "archive file is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".zip") {
		respondBadRequest(c, "archive must be a zip file")
		return
	}

	workspaceID, ok := parseOptionalFormID(c, "workspace_id")
	if !ok {
		return
	}
	spaceID, ok := parseOptionalFormID(c, "space_id")
	if !ok {
		return
	}

	if err := os.MkdirAll(controller.UploadDir, 0o755); err != nil {
		respondInternalError(c, err, "create upload directory")
		return
	}
	name := uuid.NewString() + "-" + utils.SanitizeFilename(fileHeader.Filename)
	archivePath := filepath.Join(controller.UploadDir, name)
	if err := c.SaveUploadedFile(fileHeader, archivePath); err != nil {
		respondInternalError(c, err, "save uploaded archive")
		return
	}

	job := &entities.ImportJob{
		ArchivePath:       archivePath,
		CreatedBy:         c.PostForm("created_by"),
		Status:            entities.JobStatusPending,
		ProgressStatus:    entities.ProgressPending,
		TargetWorkspaceID: workspaceID,
		TargetSpaceID:     spaceID,
	}
	if err := controller.Jobs.Create(job); err != nil {
		os.Remove(archivePath)
		respondInternalError(c, err, "create import job")
		return
	}

	if err := controller.Enqueuer.EnqueueImport(job.ID); err != nil {
		respondInternalError(c, err, "enqueue import task")
		return
	}

	respondAccepted(c, "import queued", ImportJobResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		ProgressStatus: string(job.ProgressStatus),
	})
}
