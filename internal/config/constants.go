package config

// Default filesystem locations
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./wikiport.db"

	// DefaultWorkDir is where extraction workspaces are created during imports
	DefaultWorkDir = "./work"

	// DefaultUploadDir is where uploaded export archives are kept until processed
	DefaultUploadDir = "./uploads"

	// DefaultMediaDir is where imported attachments are stored
	DefaultMediaDir = "./media"
)
