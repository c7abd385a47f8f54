package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"wikiport/internal/entities"
)

// PagesController exposes imported pages for reading.
type PagesController struct {
	Pages PageReader
}

// NewPagesController creates a new PagesController.
func NewPagesController(pages PageReader) *PagesController {
	return &PagesController{Pages: pages}
}

// PageSummary is a page without its content, for listings.
type PageSummary struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	OriginalID string `json:"original_id,omitempty"`
	ParentID   *uint  `json:"parent_id,omitempty"`
}

// PageResponse is a full page, content included.
type PageResponse struct {
	PageSummary
	SpaceID     uint                  `json:"space_id"`
	Content     json.RawMessage       `json:"content"`
	Attachments []entities.Attachment `json:"attachments"`
}

func pageToSummary(page *entities.Page) PageSummary {
	return PageSummary{
		ID:         page.ID,
		Title:      page.Title,
		Slug:       page.Slug,
		OriginalID: page.OriginalID,
		ParentID:   page.ParentID,
	}
}

// ListBySpace handles GET /api/spaces/:id/pages.
func (controller *PagesController) ListBySpace(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pages, err := controller.Pages.ListBySpace(id)
	if err != nil {
		respondInternalError(c, err, "list pages")
		return
	}

	summaries := make([]PageSummary, 0, len(pages))
	for i := range pages {
		summaries = append(summaries, pageToSummary(&pages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"pages": summaries})
}

// GetPage handles GET /api/pages/:id.
func (controller *PagesController) GetPage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page, err := controller.Pages.GetByID(id)
	if err != nil {
		respondNotFound(c, "page")
		return
	}

	content := json.RawMessage(page.Content)
	if !json.Valid(content) {
		content = json.RawMessage("null")
	}
	attachments := page.Attachments
	if attachments == nil {
		attachments = []entities.Attachment{}
	}

	c.JSON(http.StatusOK, PageResponse{
		PageSummary: pageToSummary(page),
		SpaceID:     page.SpaceID,
		Content:     content,
		Attachments: attachments,
	})
}
