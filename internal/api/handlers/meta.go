package handlers

import (
	"errors"
	"net/http"

	"cell-pressure/internal/api/models"
	"cell-pressure/internal/plot"
	"cell-pressure/internal/workbench"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListPlots handles GET /api/v1/plots
func ListPlots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plots": plot.Types()})
}

// MergeHandler handles POST /api/v1/merge. Merging is not implemented in any
// front-end; the endpoint exists so clients get a stable answer.
type MergeHandler struct {
	wb workbench.Workbench
}

func NewMergeHandler(wb workbench.Workbench) *MergeHandler {
	return &MergeHandler{wb: wb}
}

func (h *MergeHandler) Merge(c *gin.Context) {
	err := h.wb.Merge(c.Request.Context())
	switch {
	case errors.Is(err, workbench.ErrMergeNotImplemented):
		c.JSON(http.StatusNotImplemented, models.NewError(models.CodeNotImplemented, err.Error()))
	case err != nil:
		internalError(c, err)
	default:
		c.Status(http.StatusNoContent)
	}
}
