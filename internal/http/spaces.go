package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SpacesController exposes the workspace and space directory used to pick
// import targets.
type SpacesController struct {
	Directory SpaceDirectory
}

// NewSpacesController creates a new SpacesController.
func NewSpacesController(directory SpaceDirectory) *SpacesController {
	return &SpacesController{Directory: directory}
}

// ListWorkspaces handles GET /api/workspaces.
func (controller *SpacesController) ListWorkspaces(c *gin.Context) {
	workspaces, err := controller.Directory.ListWorkspaces()
	if err != nil {
		respondInternalError(c, err, "list workspaces")
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// ListSpaces handles GET /api/workspaces/:id/spaces.
func (controller *SpacesController) ListSpaces(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	spaces, err := controller.Directory.ListSpaces(id)
	if err != nil {
		respondInternalError(c, err, "list spaces")
		return
	}
	c.JSON(http.StatusOK, gin.H{"spaces": spaces})
}
