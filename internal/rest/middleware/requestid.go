package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kinderbill/kinderbill/internal/types"
)

// RequestIDMiddleware attaches a request id to the context, honoring one
// supplied by an upstream proxy.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Writer.Header().Set(types.HeaderRequestID, requestID)

	c.Next()
}
