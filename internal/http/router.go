package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Create controllers
	health := NewHealthController(cfg.Database, cfg.Version)
	importer := NewImportConfluenceController(cfg.Jobs, cfg.Enqueuer, cfg.UploadDir, cfg.MaxUploadBytes)
	jobsController := NewJobsController(cfg.Jobs)
	spacesController := NewSpacesController(cfg.Spaces)
	pagesController := NewPagesController(cfg.Pages)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Import endpoints
	router.POST("/api/import/confluence", importer.Import)
	router.GET("/api/import/jobs", jobsController.List)
	router.GET("/api/import/jobs/:id", jobsController.GetStatus)

	// Directory endpoints
	router.GET("/api/workspaces", spacesController.ListWorkspaces)
	router.GET("/api/workspaces/:id/spaces", spacesController.ListSpaces)

	// Page endpoints
	router.GET("/api/spaces/:id/pages", pagesController.ListBySpace)
	router.GET("/api/pages/:id", pagesController.GetPage)

	// Stored attachments
	if cfg.MediaDir != "" && cfg.MediaURLPrefix != "" {
		router.Static(cfg.MediaURLPrefix, cfg.MediaDir)
	}

	return router
}
