package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"wikiport/internal/config"
	"wikiport/internal/database"
	"wikiport/internal/database/attachments"
	"wikiport/internal/database/jobs"
	"wikiport/internal/database/pages"
	"wikiport/internal/database/spaces"
	http_controllers "wikiport/internal/http"
	"wikiport/internal/scheduler"
	"wikiport/internal/services"
	"wikiport/internal/storage/providers/local"
	"wikiport/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt, then shut down with a grace period.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop workers before closing the listener
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Wikiport v%s", version)

	for _, dir := range []string{cfg.Importer.WorkDir, cfg.Importer.UploadDir, cfg.Storage.MediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	spaceRepo := spaces.NewRepository(db.DB)
	pageRepo := pages.NewRepository(db.DB)
	attachmentRepo := attachments.NewRepository(db.DB)
	jobRepo := jobs.NewRepository(db.DB)

	fileStore := local.New(cfg.Storage.MediaDir, cfg.Storage.MediaURLPrefix)

	importer := services.NewConfluenceImporter(
		spaceRepo,
		pageRepo,
		attachmentRepo,
		jobRepo,
		fileStore,
		cfg.Importer.WorkDir,
	)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewImportConfluenceQueue(importer, jobRepo),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Printf("WARNING: task queue is disabled, uploaded archives will not be processed")
	}

	// Start the artifact cleanup scheduler
	cleanup := scheduler.NewWorkspaceCleanupScheduler(
		jobRepo,
		cfg.Importer.WorkDir,
		cfg.Importer.CleanupSchedule,
		cfg.Importer.WorkspaceTTL,
	)
	if err := cleanup.Start(context.Background()); err != nil {
		log.Printf("WARNING: failed to start cleanup scheduler: %v", err)
	}

	var enqueuer http_controllers.TaskEnqueuer
	if taskClient != nil {
		enqueuer = taskClient
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Jobs:           jobRepo,
		Pages:          pageRepo,
		Spaces:         spaceRepo,
		Enqueuer:       enqueuer,
		UploadDir:      cfg.Importer.UploadDir,
		MaxUploadBytes: cfg.Importer.MaxUploadBytes,
		MediaDir:       cfg.Storage.MediaDir,
		MediaURLPrefix: cfg.Storage.MediaURLPrefix,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		cleanup.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
