package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"wikiport/internal/config"
	"wikiport/internal/database"
	"wikiport/internal/database/attachments"
	"wikiport/internal/database/jobs"
	"wikiport/internal/database/pages"
	"wikiport/internal/database/spaces"
	"wikiport/internal/entities"
	"wikiport/internal/services"
	"wikiport/internal/storage/providers/local"
)

// ConfluenceImportCommand imports a Confluence export archive from the
// local filesystem, without going through the HTTP API or the task queue.
type ConfluenceImportCommand struct {
	ArchivePath  string
	DatabasePath string
	MediaDir     string
	WorkDir      string
	WorkspaceID  uint
	SpaceID      uint
	Verbose      bool
}

func NewConfluenceImportCommand() *ConfluenceImportCommand {
	return &ConfluenceImportCommand{}
}

func (cmd *ConfluenceImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.ArchivePath, "file", "", "Path to the Confluence export zip archive (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.MediaDir, "media", config.DefaultMediaDir, "Directory to store imported attachments in")
	fs.StringVar(&cmd.WorkDir, "work", config.DefaultWorkDir, "Directory for temporary extraction workspaces")
	fs.UintVar(&cmd.WorkspaceID, "workspace", 0, "Target workspace id (optional, defaults to the first workspace)")
	fs.UintVar(&cmd.SpaceID, "space", 0, "Target space id (optional, takes precedence over -workspace)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import pages and attachments from a Confluence space export archive.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import into the default space:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file export.zip\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import into a specific space:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file export.zip -space 3\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ArchivePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

func (cmd *ConfluenceImportCommand) Run() error {
	fmt.Println("Confluence Import")
	fmt.Println("=================")

	if _, err := os.Stat(cmd.ArchivePath); os.IsNotExist(err) {
		return fmt.Errorf("archive not found: %s", cmd.ArchivePath)
	}

	fmt.Printf("Archive: %s\n", cmd.ArchivePath)

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := os.MkdirAll(cmd.MediaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}

	jobRepo := jobs.NewRepository(db.DB)
	importer := services.NewConfluenceImporter(
		spaces.NewRepository(db.DB),
		pages.NewRepository(db.DB),
		attachments.NewRepository(db.DB),
		jobRepo,
		local.New(cmd.MediaDir, "/media"),
		cmd.WorkDir,
	)

	job := &entities.ImportJob{
		ArchivePath:    cmd.ArchivePath,
		CreatedBy:      "cli",
		Status:         entities.JobStatusPending,
		ProgressStatus: entities.ProgressPending,
	}
	if cmd.WorkspaceID != 0 {
		job.TargetWorkspaceID = &cmd.WorkspaceID
	}
	if cmd.SpaceID != 0 {
		job.TargetSpaceID = &cmd.SpaceID
	}
	if err := jobRepo.Create(job); err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	fmt.Println("\nImporting...")
	summary, err := importer.Run(context.Background(), job, uuid.NewString())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Println("\n=== Result ===")
	fmt.Printf("Pages imported:       %d\n", summary.PagesSucceeded)
	fmt.Printf("Pages failed:         %d\n", summary.PagesFailed)
	fmt.Printf("Attachments imported: %d\n", summary.AttachmentsSucceeded)
	if summary.Message != "" {
		fmt.Printf("Status:               %s\n", summary.Message)
	}

	if cmd.Verbose {
		final, err := jobRepo.GetByID(job.ID)
		if err == nil {
			fmt.Printf("\nJob %d finished as %s (%s)\n", final.ID, final.Status, final.ProgressStatus)
		}
	}

	return nil
}
