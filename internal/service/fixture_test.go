package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/limits"
	"github.com/mehrbod2002/equitywatch/internal/models"
	"github.com/mehrbod2002/equitywatch/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "pass123"

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (r *recordingNotifier) Publish(n *models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) types() []models.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationType, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

type fixture struct {
	ctx       context.Context
	store     *memstore.Store
	notifier  *recordingNotifier
	issuer    *auth.Issuer
	accounts  AccountService
	agents    AgentService
	sessions  AuthService
	alerts    AlertService
	dashboard DashboardService
	admin     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	notifier := &recordingNotifier{}
	issuer := auth.NewIssuer("test-secret", 2*time.Hour)
	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		notifier:  notifier,
		issuer:    issuer,
		accounts:  NewAccountService(store, store, store, notifier),
		agents:    NewAgentService(store, store, notifier),
		sessions:  NewAuthService(store, store, issuer),
		alerts:    NewAlertService(store, store, store, notifier),
		dashboard: NewDashboardService(store, store),
	}
	f.admin = f.seedUser(t, models.RoleAdmin, "Ada", "admin@example.com", "000", true)
	return f
}

func (f *fixture) seedUser(t *testing.T, role models.Role, first, email, mobile string, active bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Role:      role,
		FirstName: first,
		LastName:  "Tester",
		Email:     email,
		Mobile:    mobile,
		Password:  hash,
		Active:    active,
		CreatedOn: time.Now(),
	}
	require.NoError(t, f.store.SaveUser(f.ctx, u))
	return u
}

func (f *fixture) seedAgent(t *testing.T, first string, active bool) *models.User {
	t.Helper()
	return f.seedUser(t, models.RoleAgent, first, first+"@example.com", first+"-mobile", active)
}

func identity(u *models.User) models.Identity {
	return models.Identity{ID: u.ID, Role: u.Role, Email: u.Email, FirstName: u.FirstName}
}

func fixedLower(v float64) CreateAccountInput {
	return CreateAccountInput{
		AccountLoginID:  "",
		AccountPassword: "acct-pw",
		ServerName:      "Live-01",
		Lower:           limits.Patch{Type: limits.Str("fixed"), Threshold: limits.Num(v)},
	}
}

// createAccount creates an account held by agent through the agent's own session.
func (f *fixture) createAccount(t *testing.T, agent *models.User, loginID string, lowerFixed float64) *models.Account {
	t.Helper()
	in := fixedLower(lowerFixed)
	in.AccountLoginID = loginID
	acc, err := f.accounts.CreateAccount(f.ctx, identity(agent), in)
	require.NoError(t, err)
	return acc
}

func assertAppErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
	assert.Equal(t, msg, apperr.Message(err))
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
