package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tmarsden/scanpulse/internal/domain/dto"
	"github.com/tmarsden/scanpulse/internal/logger"
)

// ErrorHandler turns errors attached to the Gin context into the
// standard envelope, so handlers can `c.Error(err)` and return. Runs
// after the handler chain; keeps the first error only.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors[0].Err
	logger.With("http").Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", err))
}

// AbortWithError stops the chain with a structured error response.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
