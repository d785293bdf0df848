package middleware

import (
	"net/http"

	"github.com/erp/quoting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at maxBytes. Inline base64 signatures count against it.
// A declared Content-Length over the cap is refused up front with 413; chunked
// bodies are cut off by http.MaxBytesReader while the handler reads them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength <= maxBytes {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
			c.Next()
			return
		}
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size", c.GetString(RequestIDKey))
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp)
	}
}
