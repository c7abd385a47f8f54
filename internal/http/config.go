package http

import (
	"wikiport/internal/database"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Jobs     JobStore
	Pages    PageReader
	Spaces   SpaceDirectory
	Enqueuer TaskEnqueuer

	// Upload handling
	UploadDir      string
	MaxUploadBytes int64

	// Stored attachment serving
	MediaDir       string
	MediaURLPrefix string

	// Application info
	Version string
}
