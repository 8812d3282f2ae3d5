package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/fileshuttle/internal/shared/id"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID. An incoming header holding a
// ULID, prefixed or not, is kept; anything else is replaced with a fresh
// one. The ID is echoed in the response and stored on the request context.
func RequestID(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		rid := id.RequestID(c.GetHeader(RequestIDHeader))
		if !id.IsValid(strings.TrimPrefix(rid.String(), id.RequestPrefix+"_")) {
			rid = id.NewRequestID()
		}

		c.Request = c.Request.WithContext(id.WithRequestID(c.Request.Context(), rid))
		c.Header(RequestIDHeader, rid.String())

		c.Next()

		if len(c.Errors) > 0 {
			logger.Warn("Request failed",
				logging.RequestID(rid.String()),
				zap.String("path", c.Request.URL.Path),
				zap.String("error", c.Errors.Last().Error()),
			)
		}
	}
}
