// Package spaces provides database operations for workspaces and spaces,
// including target-location resolution for imports.
//
// This package implements the services.TargetResolver interface:
//
//	var _ services.TargetResolver = (*Repository)(nil)
package spaces

import (
	"errors"

	"gorm.io/gorm"

	"wikiport/internal/entities"
)

// Repository handles workspace and space database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new spaces repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Resolve picks the target space for an import, falling back through:
// the explicitly requested space, the requested workspace's first
// non-deleted space, then the first non-deleted workspace's first
// non-deleted space. Returns (nil, nil) when nothing is resolvable.
func (r *Repository) Resolve(workspaceID, spaceID *uint) (*entities.Space, error) {
	if spaceID != nil {
		space, err := r.spaceByID(*spaceID)
		if err != nil {
			return nil, err
		}
		if space != nil {
			return space, nil
		}
	}

	if workspaceID != nil {
		space, err := r.firstSpaceInWorkspace(*workspaceID)
		if err != nil {
			return nil, err
		}
		if space != nil {
			return space, nil
		}
	}

	var workspaces []entities.Workspace
	err := r.db.Where("is_deleted = ?", false).Order("id ASC").Find(&workspaces).Error
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		space, err := r.firstSpaceInWorkspace(ws.ID)
		if err != nil {
			return nil, err
		}
		if space != nil {
			return space, nil
		}
	}
	return nil, nil
}

func (r *Repository) spaceByID(id uint) (*entities.Space, error) {
	var space entities.Space
	err := r.db.Where("id = ? AND is_deleted = ?", id, false).First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *Repository) firstSpaceInWorkspace(workspaceID uint) (*entities.Space, error) {
	var space entities.Space
	err := r.db.Where("workspace_id = ? AND is_deleted = ?", workspaceID, false).
		Order("id ASC").First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &space, nil
}

// ListSpaces returns a workspace's non-deleted spaces.
func (r *Repository) ListSpaces(workspaceID uint) ([]entities.Space, error) {
	var spaces []entities.Space
	err := r.db.Where("workspace_id = ? AND is_deleted = ?", workspaceID, false).
		Order("name ASC").Find(&spaces).Error
	return spaces, err
}

// ListWorkspaces returns all non-deleted workspaces with their spaces.
func (r *Repository) ListWorkspaces() ([]entities.Workspace, error) {
	var workspaces []entities.Workspace
	err := r.db.Preload("Spaces", "is_deleted = ?", false).
		Where("is_deleted = ?", false).Order("name ASC").Find(&workspaces).Error
	return workspaces, err
}
