package middleware

import (
	"fmt"
	"net/http"

	"cell-pressure/internal/api/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler recovers panics into the JSON error envelope.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(RequestIDKey),
			"panic":      fmt.Sprint(recovered),
		}).Error("handler panicked")

		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewError(models.CodeInternal, msg))
	})
}
