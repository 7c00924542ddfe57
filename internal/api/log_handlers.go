package api

import (
	"net/http"
	"strconv"

	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

type LogHandler struct {
	logService service.LogService
}

func NewLogHandler(logService service.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// @Summary Audit log
// @Description Administrative actions, newest first (admin only)
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Only entries by this user"
// @Param page query int false "Page, from 1" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} Envelope{data=[]models.LogEntry}
// @Failure 400 {object} Envelope "Invalid user ID"
// @Failure 401 {object} Envelope "Unauthorized access"
// @Router /logs [get]
func (h *LogHandler) GetLogs(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid page")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	var logs []*models.LogEntry
	if userID := c.Query("user_id"); userID != "" {
		logs, err = h.logService.GetLogsByUserID(c.Request.Context(), identity, userID, page, limit)
	} else {
		logs, err = h.logService.GetAllLogs(c.Request.Context(), identity, page, limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, logs, "")
}
