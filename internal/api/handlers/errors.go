package handlers

import (
	"net/http"

	"cell-pressure/internal/api/models"

	"github.com/gin-gonic/gin"
)

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, err.Error()))
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, models.NewError(models.CodeInternal, err.Error()))
}
