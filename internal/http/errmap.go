package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/garage-service/internal/domain"
)

// writeErr is the single place error kinds become statuses. The token
// taxonomy deliberately collapses to one outward message.
func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": stripKind(err, domain.ErrValidation)})
	case errors.Is(err, domain.ErrAuth):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid social token"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Garage not found"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "Conflict, retry the request"})
	case errors.Is(err, domain.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"message": "Upstream timeout, retry the request"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal error"})
	}
}

func stripKind(err, kind error) string {
	msg := err.Error()
	prefix := kind.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return msg[len(prefix):]
	}
	return msg
}
