// Package attachments provides database operations for attachment records.
package attachments

import (
	"fmt"

	"gorm.io/gorm"

	"wikiport/internal/entities"
)

// Repository handles attachment database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new attachments repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an attachment record bound to a page.
func (r *Repository) Create(attachment *entities.Attachment) error {
	if err := r.db.Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to create attachment %q: %w", attachment.FileName, err)
	}
	return nil
}

// ListByPage returns all attachments of a page.
func (r *Repository) ListByPage(pageID uint) ([]entities.Attachment, error) {
	var attachments []entities.Attachment
	err := r.db.Where("page_id = ?", pageID).Order("file_name ASC").Find(&attachments).Error
	return attachments, err
}
