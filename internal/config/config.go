package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Importer
		Storage
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	Importer struct {
		WorkDir         string
		UploadDir       string
		MaxUploadBytes  int64
		CleanupSchedule string        // Cron format: "30 * * * *" = half past every hour
		WorkspaceTTL    time.Duration // How long finished-job artifacts are kept
	}

	Storage struct {
		MediaDir       string
		MediaURLPrefix string
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Importer defaults
	v.SetDefault("importer_work_dir", DefaultWorkDir)
	v.SetDefault("importer_upload_dir", DefaultUploadDir)
	v.SetDefault("importer_max_upload_bytes", int64(512<<20))
	v.SetDefault("importer_cleanup_schedule", "30 * * * *")
	v.SetDefault("importer_workspace_ttl", "24h")

	// Storage defaults
	v.SetDefault("storage_media_dir", DefaultMediaDir)
	v.SetDefault("storage_media_url_prefix", "/media")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "30m")
	v.SetDefault("task_release_after", "45m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Importer: Importer{
			WorkDir:         v.GetString("IMPORTER_WORK_DIR"),
			UploadDir:       v.GetString("IMPORTER_UPLOAD_DIR"),
			MaxUploadBytes:  v.GetInt64("IMPORTER_MAX_UPLOAD_BYTES"),
			CleanupSchedule: v.GetString("IMPORTER_CLEANUP_SCHEDULE"),
			WorkspaceTTL:    v.GetDuration("IMPORTER_WORKSPACE_TTL"),
		},
		Storage: Storage{
			MediaDir:       v.GetString("STORAGE_MEDIA_DIR"),
			MediaURLPrefix: v.GetString("STORAGE_MEDIA_URL_PREFIX"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}
