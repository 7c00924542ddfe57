package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/service"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type AccountHandler struct {
	accountService service.AccountService
	logService     service.LogService
}

func NewAccountHandler(accountService service.AccountService, logService service.LogService) *AccountHandler {
	return &AccountHandler{accountService: accountService, logService: logService}
}

// @Summary Create an account
// @Description Agents create accounts for themselves; admins must name an active agent in agentId
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account body CreateAccountRequest true "Account"
// @Success 201 {object} Envelope{data=models.Account}
// @Failure 400 {object} Envelope "Validation failure"
// @Failure 403 {object} Envelope "Unknown role"
// @Router /createAccount [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), identity, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "CreateAccount", "Created account "+account.AccountLoginID, map[string]interface{}{
		"account_id": account.ID.Hex(),
		"agent_id":   account.AgentHolderID.Hex(),
	})
	respond(c, http.StatusCreated, account, "Account Created Successfully")
}

// @Summary Update an account
// @Description Partial update. Explicit nulls clear a limit field; absent fields keep the stored value
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param account body UpdateAccountRequest true "Fields to change"
// @Success 200 {object} Envelope{data=models.Account}
// @Failure 400 {object} Envelope "Validation failure"
// @Failure 401 {object} Envelope "Unauthorized to update this account"
// @Failure 404 {object} Envelope "Account not found"
// @Router /updateAccount/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	account, err := h.accountService.UpdateAccount(c.Request.Context(), identity, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "UpdateAccount", "Updated account "+account.AccountLoginID, map[string]interface{}{"account_id": id})
	respond(c, http.StatusOK, account, "Account updated successfully")
}

// @Summary Change an account password
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param passwords body ChangePasswordRequest true "Passwords"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope "Mismatch, wrong old password or inactive agent"
// @Failure 401 {object} Envelope "Unauthorized"
// @Failure 404 {object} Envelope "Account not found"
// @Router /updateAccountPassword/{id} [put]
func (h *AccountHandler) UpdateAccountPassword(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	in := service.ChangeAccountPasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}
	if err := h.accountService.ChangeAccountPassword(c.Request.Context(), identity, id, in); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "UpdateAccountPassword", "Changed account password", map[string]interface{}{"account_id": id})
	respond(c, http.StatusOK, nil, "Password updated successfully")
}

// @Summary List accounts
// @Description Admins see every account, agents only their own
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=[]models.Account}
// @Failure 401 {object} Envelope "Unauthorized"
// @Router /getAccounts [get]
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, accounts, "")
}

// @Summary Delete an account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Account ID"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope "Unauthorized"
// @Failure 404 {object} Envelope "Account not found"
// @Router /deleteAccount/{userId} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	id := c.Param("userId")
	if err := h.accountService.DeleteAccount(c.Request.Context(), identity, id); err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "DeleteAccount", "Deleted account", map[string]interface{}{"account_id": id})
	respond(c, http.StatusOK, nil, "Account deleted successfully")
}

// @Summary Toggle mobile alerts
// @Description Flips mobileAlert on every account the calling agent holds
// @Tags Mobile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=service.MobileAlertToggleResult}
// @Failure 401 {object} Envelope "Agents only"
// @Router /toggleMobileAlerts [put]
func (h *AccountHandler) ToggleMobileAlerts(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	res, err := h.accountService.ToggleAllMobileAlerts(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}

	audit(c, h.logService, identity, "ToggleMobileAlerts", "Toggled mobile alerts", map[string]interface{}{"updated_accounts": res.UpdatedAccounts})
	respond(c, http.StatusOK, res, "Mobile Alerts Toggled Successfully")
}

// @Summary Mobile alert summary
// @Description One account of the calling agent plus how many more it holds
// @Tags Mobile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Envelope{data=service.MobileAlertSummary}
// @Failure 401 {object} Envelope "Agents only"
// @Router /mobile-alert-accounts [get]
func (h *AccountHandler) GetMobileAlertAccounts(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	summary, err := h.accountService.MobileAlertSummary(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, summary, "Mobile Alert Account Retrieved Successfully")
}

// @Summary Mobile alarm history
// @Description Paginated mobile alert toggle history, newest first (admin only)
// @Tags Mobile
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, from 1" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Case-insensitive login id fragment"
// @Param status query bool false "New mobile alert status"
// @Param startDate query string false "RFC3339 or YYYY-MM-DD"
// @Param endDate query string false "RFC3339 or YYYY-MM-DD, a bare date includes the whole day"
// @Success 200 {object} Envelope{data=service.MobileAlarmLogPage}
// @Failure 400 {object} Envelope "Bad query parameter"
// @Failure 401 {object} Envelope "Admins only"
// @Router /mobile-alarm-logs [get]
func (h *AccountHandler) GetMobileAlarmLogs(c *gin.Context) {
	identity, ok := caller(c)
	if !ok {
		return
	}

	q, msg := parseAlarmQuery(c)
	if msg != "" {
		respondMessage(c, http.StatusBadRequest, msg)
		return
	}

	page, err := h.accountService.MobileAlarmLogs(c.Request.Context(), identity, q)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}

func parseAlarmQuery(c *gin.Context) (models.MobileAlarmQuery, string) {
	var q models.MobileAlarmQuery
	var err error

	if q.Page, err = queryInt(c, "page", 1); err != nil {
		return q, "Invalid page"
	}
	if q.Limit, err = queryInt(c, "limit", 10); err != nil {
		return q, "Invalid limit"
	}
	q.Search = strings.TrimSpace(c.Query("search"))

	if raw := c.Query("status"); raw != "" {
		status, err := strconv.ParseBool(raw)
		if err != nil {
			return q, "Invalid status"
		}
		q.Status = &status
	}
	if raw := c.Query("startDate"); raw != "" {
		t, _, err := parseDate(raw)
		if err != nil {
			return q, "Invalid startDate"
		}
		q.StartDate = &t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			return q, "Invalid endDate"
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		q.EndDate = &t
	}
	return q, ""
}

func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	return t, true, err
}
