package api

import (
	"net/http"
	"strings"

	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	alertService service.AlertService
	logService   service.LogService
}

func NewAlertHandler(alertService service.AlertService, logService service.LogService) *AlertHandler {
	return &AlertHandler{alertService: alertService, logService: logService}
}

// @Summary Account alerts
// @Description With accountLoginId returns that account's alert; without, every alert the caller may see
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param accountLoginId query string false "Account login ID"
// @Success 200 {object} Envelope{data=[]models.AccountAlert}
// @Failure 401 {object} Envelope "Unauthorized access"
// @Failure 404 {object} Envelope "Associated account not found"
// @Router /account-alert [get]
func (h *AlertHandler) GetAccountAlert(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if loginID := strings.TrimSpace(c.Query("accountLoginId")); loginID != "" {
		alert, err := h.alertService.GetAlert(ctx, identity, loginID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, alert, "")
		return
	}

	alerts, err := h.alertService.ListAlerts(ctx, identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, alerts, "")
}

// @Summary Trade account info
// @Description With accountLoginId returns that account's snapshot; without, every snapshot the caller may see
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param accountLoginId query string false "Account login ID"
// @Success 200 {object} Envelope{data=[]models.TradeAccountInfo}
// @Failure 401 {object} Envelope "Unauthorized access"
// @Failure 404 {object} Envelope "Associated account not found"
// @Router /trade-account-info [get]
func (h *AlertHandler) GetTradeAccountInfo(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if loginID := strings.TrimSpace(c.Query("accountLoginId")); loginID != "" {
		info, err := h.alertService.GetTradeInfo(ctx, identity, loginID)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, info, "")
		return
	}

	infos, err := h.alertService.ListTradeInfo(ctx, identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, infos, "")
}

// @Summary Acknowledge an alert
// @Description Clears a raised alert on an account the calling agent holds
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} Envelope{data=models.AccountAlert}
// @Failure 400 {object} Envelope "Alert flag is already false"
// @Failure 401 {object} Envelope "Only agents can update account alerts"
// @Failure 404 {object} Envelope "Alert not found"
// @Router /updateAlert/{id} [put]
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	id := c.Param("id")
	alert, err := h.alertService.AcknowledgeAlert(c.Request.Context(), identity, id)
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "AcknowledgeAlert", "Cleared alert for account "+alert.AccountLoginID, map[string]interface{}{"alert_id": id})
	respond(c, http.StatusOK, alert, "Account alert updated successfully")
}
