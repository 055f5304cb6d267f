package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/middleware"
	"go.uber.org/zap"
)

// Error messages returned to clients.
const (
	MsgInvalidInput       = "Invalid input"
	MsgInvalidCredentials = "Invalid username or password"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Forbidden"
	MsgSelfModification   = "Cannot modify your own account"
	MsgDuplicateUsername  = "Username already exists"
	MsgUserNotFound       = "User not found"
	MsgInvalidUserID      = "Invalid user ID"
	MsgInternal           = "Internal server error"
)

// writeError maps the auth error taxonomy onto HTTP. Anything unrecognized
// is logged and reported as a bare 500.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidInput, "details": verr.Error()})
	case errors.Is(err, auth.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidInput})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": MsgInvalidCredentials})
	case errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": MsgUnauthorized})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": MsgForbidden})
	case errors.Is(err, auth.ErrSelfModification):
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgSelfModification})
	case errors.Is(err, auth.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, gin.H{"error": MsgDuplicateUsername})
	case errors.Is(err, auth.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": MsgUserNotFound})
	default:
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgInternal})
	}
}

func badInput(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidInput, "details": err.Error()})
}
