package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wikiport/internal/entities"
)

// CleanupJobSource lists finished jobs whose artifacts are still on disk.
type CleanupJobSource interface {
	ListTerminalBefore(cutoff time.Time) ([]entities.ImportJob, error)
	ClearArchivePath(jobID uint) error
}

// WorkspaceCleanupScheduler periodically deletes leftover import artifacts:
// uploaded archives of finished jobs and extraction workspaces that outlived
// their run, typically after a crash mid-import.
type WorkspaceCleanupScheduler struct {
	jobs     CleanupJobSource
	workDir  string
	schedule string
	ttl      time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewWorkspaceCleanupScheduler creates a new scheduler instance.
func NewWorkspaceCleanupScheduler(jobs CleanupJobSource, workDir, schedule string, ttl time.Duration) *WorkspaceCleanupScheduler {
	return &WorkspaceCleanupScheduler{
		jobs:     jobs,
		workDir:  workDir,
		schedule: schedule,
		ttl:      ttl,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *WorkspaceCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Workspace cleanup scheduler: started with schedule '%s' (ttl %s)", s.schedule, s.ttl)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *WorkspaceCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Workspace cleanup scheduler: stopped")
}

// RunNow triggers an immediate sweep.
func (s *WorkspaceCleanupScheduler) RunNow() {
	go s.runCleanup()
}

// IsRunning returns whether the scheduler is active.
func (s *WorkspaceCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *WorkspaceCleanupScheduler) runCleanup() {
	cutoff := time.Now().Add(-s.ttl)
	archives := s.cleanupArchives(cutoff)
	workspaces := s.cleanupWorkspaces(cutoff)
	if archives > 0 || workspaces > 0 {
		log.Printf("Workspace cleanup: removed %d archives and %d stale workspaces", archives, workspaces)
	}
}

// cleanupArchives removes uploaded archives of jobs that finished before the
// cutoff and clears the path on the job record so they are swept only once.
func (s *WorkspaceCleanupScheduler) cleanupArchives(cutoff time.Time) int {
	jobs, err := s.jobs.ListTerminalBefore(cutoff)
	if err != nil {
		log.Printf("Workspace cleanup: failed to list finished jobs: %v", err)
		return 0
	}

	removed := 0
	for _, job := range jobs {
		if err := os.Remove(job.ArchivePath); err != nil && !os.IsNotExist(err) {
			log.Printf("Workspace cleanup: failed to remove archive %s: %v", job.ArchivePath, err)
			continue
		}
		if err := s.jobs.ClearArchivePath(job.ID); err != nil {
			log.Printf("Workspace cleanup: failed to clear archive path for job %d: %v", job.ID, err)
			continue
		}
		removed++
	}
	return removed
}

// cleanupWorkspaces removes extraction directories older than the cutoff.
// Live runs always delete their own workspace on exit, so anything old
// enough to trip the ttl was orphaned.
func (s *WorkspaceCleanupScheduler) cleanupWorkspaces(cutoff time.Time) int {
	dirEntries, err := os.ReadDir(s.workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Workspace cleanup: cannot read work directory %s: %v", s.workDir, err)
		}
		return 0
	}

	removed := 0
	for _, entry := range dirEntries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "confluence-import-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Workspace cleanup: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}
