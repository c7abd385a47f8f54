package http

import "wikiport/internal/entities"

// This file consolidates the store interface definitions used by HTTP
// controllers. Each controller declares only the operations it needs.

// JobStore provides persistence for import jobs.
type JobStore interface {
	Create(job *entities.ImportJob) error
	GetByID(id uint) (*entities.ImportJob, error)
	List(limit int) ([]entities.ImportJob, error)
}

// PageReader provides read access to imported pages.
type PageReader interface {
	GetByID(id uint) (*entities.Page, error)
	ListBySpace(spaceID uint) ([]entities.Page, error)
}

// SpaceDirectory provides read access to workspaces and spaces.
type SpaceDirectory interface {
	ListWorkspaces() ([]entities.Workspace, error)
	ListSpaces(workspaceID uint) ([]entities.Space, error)
}

// TaskEnqueuer enqueues background import tasks.
type TaskEnqueuer interface {
	EnqueueImport(jobID uint) error
}
