package api

import (
	"net/http"

	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// @Summary Dashboard counts
// @Description Agents get their account count; admins also get the agent count
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=service.Counts}
// @Failure 401 {object} Envelope "Unauthorized"
// @Router /getCounts [get]
func (h *DashboardHandler) GetCounts(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	counts, err := h.dashboardService.GetCounts(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, counts, "")
}
