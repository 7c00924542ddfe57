package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/config"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository/memstore"
	"github.com/mehrbod2002/equitywatch/internal/service"
	"github.com/mehrbod2002/equitywatch/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail = "admin@example.com"
	adminPass  = "admin-pass"
)

type testServer struct {
	t     *testing.T
	r     *gin.Engine
	store *memstore.Store
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	require.NoError(t, config.EnsureAdminUser(context.Background(), store, adminEmail, adminPass))

	if cfg == nil {
		cfg = &config.Config{LoginRateLimit: 1000, LoginRateBurst: 1000, RequestTimeout: 5 * time.Second}
	}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	hub := ws.NewHub()

	r := gin.New()
	SetupRoutes(r, cfg, issuer,
		service.NewAuthService(store, store, issuer),
		service.NewAgentService(store, store, hub),
		service.NewAccountService(store, store, store, hub),
		service.NewAlertService(store, store, store, hub),
		service.NewDashboardService(store, store),
		service.NewLogService(store),
		ws.NewWebSocketHandler(hub, issuer),
	)
	return &testServer{t: t, r: r, store: store}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, code, env.Message)
	var res LoginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func (s *testServer) createAgent(adminToken, first string) (string, string) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/createAgent", adminToken, gin.H{
		"firstName": first,
		"lastName":  "Tester",
		"email":     first + "@example.com",
		"mobile":    first + "-mobile",
		"password":  "agent-pass",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	var agent models.User
	require.NoError(s.t, json.Unmarshal(env.Data, &agent))
	return agent.ID.Hex(), s.login(first+"@example.com", "agent-pass")
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthAndAuthGate(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/v1/getAccounts", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "RS_ERROR", env.Status)
	assert.Equal(t, "Token Not Provided", env.Message)

	code, env = s.do(http.MethodGet, "/api/v1/getAccounts", "junk", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid token", env.Message)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := s.do(http.MethodPost, "/api/v1/login", "", gin.H{"email": "ADMIN@example.com", "password": adminPass})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "RS_OK", env.Status)
	assert.Equal(t, "Login successful", env.Message)
	res := decode[LoginResponse](t, env)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleAdmin, res.Role)

	code, env = s.do(http.MethodPost, "/api/v1/login", "", gin.H{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid Email or Password", env.Message)

	code, env = s.do(http.MethodPost, "/api/v1/login", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", env.Message)
}

func TestInactiveAgentLogin(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)
	agentID, _ := s.createAgent(admin, "ivy")

	code, _ := s.do(http.MethodPut, "/api/v1/updateAgent/"+agentID, admin, gin.H{"active": false})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodPost, "/api/v1/login", "", gin.H{"email": "ivy@example.com", "password": "agent-pass"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Your account is inactive. Please contact the administrator.", env.Message)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, &config.Config{LoginRateLimit: 0.001, LoginRateBurst: 1})

	code, _ := s.do(http.MethodPost, "/api/v1/login", "", gin.H{"email": adminEmail, "password": adminPass})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/api/v1/login", "", gin.H{"email": adminEmail, "password": adminPass})
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)
	_, agent := s.createAgent(admin, "omar")
	_, other := s.createAgent(admin, "pia")

	code, env := s.do(http.MethodPost, "/api/v1/createAccount", agent, gin.H{
		"AccountLoginId":             "5001",
		"AccountPassword":            "acct-pw",
		"ServerName":                 "Live-01",
		"EquityType":                 "fixed",
		"EquityThreshhold":           "100",
		"UpperLimitEquityType":       "fixed",
		"UpperLimitEquityThreshhold": 200,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "Account Created Successfully", env.Message)
	account := decode[models.Account](t, env)
	require.NotNil(t, account.EquityThreshold)
	assert.Equal(t, 100.0, *account.EquityThreshold)
	assert.Equal(t, "omar Tester", account.AgentHolderName)
	assert.False(t, account.Active)

	id := account.ID.Hex()

	t.Run("explicit null clears the lower side", func(t *testing.T) {
		code, env := s.do(http.MethodPut, "/api/v1/updateAccount/"+id, agent, `{"EquityType":null,"EquityThreshhold":null}`)
		require.Equal(t, http.StatusOK, code, env.Message)
		updated := decode[models.Account](t, env)
		assert.Nil(t, updated.EquityType)
		assert.Nil(t, updated.EquityThreshold)
		require.NotNil(t, updated.UpperLimitEquityThreshold)
		assert.Equal(t, 200.0, *updated.UpperLimitEquityThreshold)
	})

	t.Run("clearing the last complete side is refused", func(t *testing.T) {
		code, env := s.do(http.MethodPut, "/api/v1/updateAccount/"+id, agent, `{"UpperLimitEquityType":null}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "At least one complete limit combination must remain after update", env.Message)
	})

	t.Run("other agents cannot touch it", func(t *testing.T) {
		code, env := s.do(http.MethodPut, "/api/v1/updateAccount/"+id, other, gin.H{"ServerName": "x"})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Unauthorized to update this account", env.Message)
	})

	t.Run("activation needs the caller password", func(t *testing.T) {
		code, env := s.do(http.MethodPut, "/api/v1/updateAccount/"+id, agent, gin.H{"active": "true"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "User password required", env.Message)

		code, env = s.do(http.MethodPut, "/api/v1/updateAccount/"+id, agent, gin.H{"active": true, "userPassword": "agent-pass"})
		require.Equal(t, http.StatusOK, code, env.Message)
		assert.True(t, decode[models.Account](t, env).Active)
	})

	t.Run("listing is scoped", func(t *testing.T) {
		_, env := s.do(http.MethodGet, "/api/v1/getAccounts", agent, nil)
		assert.Len(t, decode[[]models.Account](t, env), 1)
		_, env = s.do(http.MethodGet, "/api/v1/getAccounts", other, nil)
		assert.Empty(t, decode[[]models.Account](t, env))
	})

	t.Run("counts", func(t *testing.T) {
		_, env := s.do(http.MethodGet, "/api/v1/getCounts", admin, nil)
		counts := decode[service.Counts](t, env)
		require.NotNil(t, counts.Agent)
		assert.Equal(t, int64(2), *counts.Agent)
		assert.Equal(t, int64(1), counts.AccountCount)
	})

	t.Run("delete", func(t *testing.T) {
		code, _ := s.do(http.MethodDelete, "/api/v1/deleteAccount/"+id, agent, nil)
		assert.Equal(t, http.StatusOK, code)
		code, env := s.do(http.MethodDelete, "/api/v1/deleteAccount/"+id, agent, nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Account not found", env.Message)
	})
}

func TestFlexBoolBinding(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)

	body := gin.H{"firstName": "q", "lastName": "r", "email": "q@example.com", "mobile": "1", "password": "p", "active": "false"}
	code, env := s.do(http.MethodPost, "/api/v1/createAgent", admin, body)
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.False(t, decode[models.User](t, env).Active)

	body["email"], body["mobile"], body["active"] = "z@example.com", "2", "maybe"
	code, env = s.do(http.MethodPost, "/api/v1/createAgent", admin, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", env.Message)
}

func TestAlertAcknowledgement(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)
	_, agent := s.createAgent(admin, "rey")

	code, env := s.do(http.MethodPost, "/api/v1/createAccount", agent, gin.H{
		"AccountLoginId": "7001", "AccountPassword": "pw", "ServerName": "Live", "EquityType": "percentage", "EquityThreshhold": 40,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	alert := &models.AccountAlert{AccountLoginID: "7001", AlertFlag: true, AlertOn: time.Now()}
	s.store.PutAlert(alert)

	code, env = s.do(http.MethodGet, "/api/v1/account-alert?accountLoginId=7001", agent, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, decode[models.AccountAlert](t, env).AlertFlag)

	code, env = s.do(http.MethodGet, "/api/v1/account-alert?accountLoginId=9999", agent, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Associated account not found", env.Message)

	code, env = s.do(http.MethodPut, "/api/v1/updateAlert/"+alert.ID.Hex(), admin, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Only agents can update account alerts", env.Message)

	code, env = s.do(http.MethodPut, "/api/v1/updateAlert/"+alert.ID.Hex(), agent, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.False(t, decode[models.AccountAlert](t, env).AlertFlag)

	code, env = s.do(http.MethodPut, "/api/v1/updateAlert/"+alert.ID.Hex(), agent, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Alert flag is already false", env.Message)

	_, env = s.do(http.MethodGet, "/api/v1/account-alert", admin, nil)
	assert.Len(t, decode[[]models.AccountAlert](t, env), 1)
}

func TestMobileAlarmLogsQuery(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)
	_, agent := s.createAgent(admin, "sol")

	for _, id := range []string{"8001", "8002"} {
		code, env := s.do(http.MethodPost, "/api/v1/createAccount", agent, gin.H{
			"AccountLoginId": id, "AccountPassword": "pw", "ServerName": "Live", "EquityType": "fixed", "EquityThreshhold": 10,
		})
		require.Equal(t, http.StatusCreated, code, env.Message)
	}
	code, env := s.do(http.MethodPut, "/api/v1/toggleMobileAlerts", agent, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, 2, decode[service.MobileAlertToggleResult](t, env).UpdatedAccounts)

	code, env = s.do(http.MethodGet, "/api/v1/mobile-alarm-logs?search=8001&limit=5", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	page := decode[service.MobileAlarmLogPage](t, env)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "8001", page.Logs[0].AccountLoginID)
	assert.Equal(t, "sol Tester", page.Logs[0].AgentHolder.Name)
	assert.Equal(t, int64(5), page.Pagination.LogsPerPage)

	code, env = s.do(http.MethodGet, "/api/v1/mobile-alarm-logs?page=3&limit=4611686018427387904", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	page = decode[service.MobileAlarmLogPage](t, env)
	assert.Empty(t, page.Logs)
	assert.Equal(t, service.Pagination{CurrentPage: 3, TotalPages: 1, TotalLogs: 2, LogsPerPage: 500}, page.Pagination)

	code, env = s.do(http.MethodGet, "/api/v1/mobile-alarm-logs?status=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid status", env.Message)

	code, env = s.do(http.MethodGet, "/api/v1/mobile-alarm-logs?endDate=2024-13-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid endDate", env.Message)

	code, _ = s.do(http.MethodGet, "/api/v1/mobile-alarm-logs", agent, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuditTrail(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)
	agentID, agent := s.createAgent(admin, "tam")

	code, env := s.do(http.MethodGet, "/api/v1/logs", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	actions := map[string]bool{}
	for _, l := range decode[[]models.LogEntry](t, env) {
		actions[l.Action] = true
	}
	assert.True(t, actions["Login"])
	assert.True(t, actions["CreateAgent"])

	code, env = s.do(http.MethodGet, "/api/v1/logs?user_id="+agentID, admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Len(t, decode[[]models.LogEntry](t, env), 1)

	code, _ = s.do(http.MethodGet, "/api/v1/logs", agent, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestMobileSession(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.login(adminEmail, adminPass)
	s.createAgent(admin, "uma")

	code, env := s.do(http.MethodPost, "/api/v1/mobile/login", "", gin.H{"email": "uma@example.com", "password": "agent-pass"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email, password, and FCM token are required", env.Message)

	code, env = s.do(http.MethodPost, "/api/v1/mobile/login", "", gin.H{"email": "uma@example.com", "password": "agent-pass", "fcmtoken": "dev-1"})
	require.Equal(t, http.StatusOK, code, env.Message)
	token := decode[LoginResponse](t, env).Token

	code, env = s.do(http.MethodPost, "/api/v1/mobile/logout", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "FCM token is required", env.Message)

	code, env = s.do(http.MethodPost, "/api/v1/mobile/logout", token, gin.H{"fcmtoken": "dev-1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Logout successful", env.Message)
}
