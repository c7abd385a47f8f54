package entities

import (
	"time"
)

// Workspace is the top-level container for spaces.
type Workspace struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:200" json:"name"`
	IsDeleted bool      `gorm:"index" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Spaces []Space `gorm:"foreignKey:WorkspaceID" json:"spaces,omitempty"`
}

// Space is a page group inside a workspace. Imported pages always land in
// exactly one space, which acts as the import's target location.
type Space struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID uint      `gorm:"index" json:"workspace_id"`
	Key         string    `gorm:"uniqueIndex;size:50" json:"key"`
	Name        string    `gorm:"index;size:255" json:"name"`
	Description string    `gorm:"size:1024" json:"description,omitempty"`
	IsDeleted   bool      `gorm:"index" json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Page is a wiki page with rich-text content stored as serialized document
// AST JSON. OriginalID is the identifier the page had in the source system
// and joins the metadata hierarchy to imported pages; it is unique per
// space so re-running an import against the same target cannot duplicate
// pages.
type Page struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	SpaceID    uint   `gorm:"index;uniqueIndex:uniq_pages_original_per_space" json:"space_id"`
	Title      string `gorm:"index;size:512" json:"title"`
	Slug       string `gorm:"uniqueIndex;size:255" json:"slug"`
	Content    string `gorm:"type:text" json:"content,omitempty"`
	OriginalID string `gorm:"size:255;uniqueIndex:uniq_pages_original_per_space" json:"original_id,omitempty"`
	ParentID   *uint  `gorm:"index" json:"parent_id,omitempty"`
	ImportedBy string `gorm:"size:100" json:"imported_by,omitempty"`
	Version    int    `gorm:"default:1" json:"version"`
	IsDeleted  bool   `gorm:"index" json:"is_deleted"`

	Parent      *Page        `gorm:"foreignKey:ParentID" json:"-"`
	Attachments []Attachment `gorm:"foreignKey:PageID" json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a binary blob bound to a page. StoragePath is the
// retrievable reference returned by the content store.
type Attachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PageID      uint      `gorm:"index" json:"page_id"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	StoragePath string    `gorm:"size:1024" json:"storage_path"`
	MimeType    string    `gorm:"size:100" json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `gorm:"size:100" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
