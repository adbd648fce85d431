package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestIDMiddleware tags every request with a unique id, exposed both to
// handlers via the context and to clients via the X-Request-ID header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("RequestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RecoveryMiddleware recovers from panics in the HTTP layer and answers with
// a JSON-RPC shaped internal error. Panic detail is logged, never sent.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetString("RequestID")

				var err *Error
				switch v := r.(type) {
				case error:
					err = Internal(v)
				default:
					err = Internal(fmt.Errorf("panic: %v", v))
				}

				log.Error().
					Str("request_id", requestID).
					Interface("panic", r).
					Msg("panic recovered in http layer")

				c.JSON(http.StatusInternalServerError, gin.H{
					"jsonrpc": "2.0",
					"error":   err,
					"id":      nil,
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
