package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
)

// ErrorHandler converts errors attached to the gin context into a uniform
// JSON error response with the status mapped from the error's mark.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		if status >= 500 {
			log.Errorw("request failed",
				"path", c.Request.URL.Path,
				"status", status,
				"error", err,
			)
		}

		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
