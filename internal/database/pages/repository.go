// Package pages provides database operations for page records.
//
// This package implements the services.PageStore interface consumed by the
// import orchestrator:
//
//	var _ services.PageStore = (*Repository)(nil)
package pages

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wikiport/internal/entities"
	"wikiport/internal/utils"
)

// Repository handles page database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new pages repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether a page with the given source-system id already
// exists in the space. An empty original id never matches anything.
func (r *Repository) Exists(originalID string, spaceID uint) (bool, error) {
	if originalID == "" {
		return false, nil
	}
	var count int64
	err := r.db.Model(&entities.Page{}).
		Where("original_id = ? AND space_id = ? AND is_deleted = ?", originalID, spaceID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create persists a new page, generating a unique slug from the title. The
// composite unique index on (space_id, original_id) backs the importer's
// idempotency check: a concurrent duplicate surfaces as a creation error
// here, not as silent double-inserts.
func (r *Repository) Create(page *entities.Page) error {
	slug, err := r.uniqueSlug(page.Title)
	if err != nil {
		return fmt.Errorf("failed to generate slug for %q: %w", page.Title, err)
	}
	page.Slug = slug

	if err := r.db.Create(page).Error; err != nil {
		return fmt.Errorf("failed to create page %q: %w", page.Title, err)
	}
	return nil
}

// SetParent links a page to its parent. Setting an already-correct parent
// is a no-op.
func (r *Repository) SetParent(pageID, parentID uint) error {
	var page entities.Page
	if err := r.db.Select("id", "parent_id").First(&page, pageID).Error; err != nil {
		return fmt.Errorf("failed to load page %d: %w", pageID, err)
	}
	if page.ParentID != nil && *page.ParentID == parentID {
		return nil
	}
	err := r.db.Model(&entities.Page{}).Where("id = ?", pageID).
		Update("parent_id", parentID).Error
	if err != nil {
		return fmt.Errorf("failed to set parent of page %d: %w", pageID, err)
	}
	return nil
}

// UpdateContent replaces a page's serialized AST content.
func (r *Repository) UpdateContent(pageID uint, contentJSON string) error {
	err := r.db.Model(&entities.Page{}).Where("id = ?", pageID).
		Update("content", contentJSON).Error
	if err != nil {
		return fmt.Errorf("failed to update content of page %d: %w", pageID, err)
	}
	return nil
}

// GetByID retrieves a page with its attachments.
func (r *Repository) GetByID(id uint) (*entities.Page, error) {
	var page entities.Page
	err := r.db.Preload("Attachments").
		Where("is_deleted = ?", false).First(&page, id).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListBySpace returns all non-deleted pages in a space, without content,
// ordered by title.
func (r *Repository) ListBySpace(spaceID uint) ([]entities.Page, error) {
	var pages []entities.Page
	err := r.db.Omit("content").
		Where("space_id = ? AND is_deleted = ?", spaceID, false).
		Order("title ASC").Find(&pages).Error
	return pages, err
}

// uniqueSlug builds a slug from the title, falling back to a short random
// identifier and suffixing on collision.
func (r *Repository) uniqueSlug(title string) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = uuid.NewString()[:8]
	}

	slug := base
	for counter := 1; ; counter++ {
		var count int64
		err := r.db.Model(&entities.Page{}).Where("slug = ?", slug).Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		if counter > 50 {
			// Give up on readable slugs under pathological collision.
			return base + "-" + uuid.NewString()[:8], nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
