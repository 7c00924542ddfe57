package api

import (
	"log/slog"
	"net/http"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/middleware"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK    = "RS_OK"
	statusError = "RS_ERROR"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respond(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, Envelope{Status: statusOK, Data: data, Message: message})
}

func respondMessage(c *gin.Context, code int, message string) {
	c.JSON(code, Envelope{Status: statusError, Message: message})
}

// respondError maps err onto the envelope. Internal errors are logged here and
// nowhere else.
func respondError(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"request_id", c.GetString(middleware.RequestIDKey),
			"path", c.Request.URL.Path,
			"error", err,
		)
	}
	respondMessage(c, code, apperr.Message(err))
}

// caller returns the identity set by the auth gate. Routes without the gate
// never reach a handler that needs one.
func caller(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Invalid token")
	}
	return identity, ok
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// audit records a completed mutation. A failed write is logged and does not
// change the response.
func audit(c *gin.Context, logService service.LogService, actor models.Identity, action, description string, metadata map[string]interface{}) {
	if err := logService.LogAction(c.Request.Context(), actor, action, description, c.ClientIP(), metadata); err != nil {
		slog.WarnContext(c.Request.Context(), "audit log write failed", "action", action, "error", err)
	}
}
