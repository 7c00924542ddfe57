package service

import (
	"testing"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/apperr"
	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertQueries(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAgent(t, "alice", true)
	bob := f.seedAgent(t, "bob", true)
	f.createAccount(t, alice, "1001", 50)
	f.createAccount(t, bob, "2001", 50)
	f.store.PutAlert(&models.AccountAlert{AccountLoginID: "1001", AlertFlag: true, AlertOn: time.Now()})
	f.store.PutAlert(&models.AccountAlert{AccountLoginID: "2001", AlertFlag: true, AlertOn: time.Now()})
	f.store.PutTradeInfo(&models.TradeAccountInfo{AccountLoginID: "1001", MT5Balance: 1000, MT5Equity: 950})

	all, err := f.alerts.ListAlerts(f.ctx, identity(f.admin))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.alerts.ListAlerts(f.ctx, identity(alice))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "1001", own[0].AccountLoginID)

	_, err = f.alerts.GetAlert(f.ctx, identity(alice), "2001")
	assertAppErr(t, err, apperr.KindUnauthorized, "Unauthorized to access this account alert")

	_, err = f.alerts.GetAlert(f.ctx, identity(alice), "9999")
	assertAppErr(t, err, apperr.KindNotFound, "Associated account not found")

	info, err := f.alerts.GetTradeInfo(f.ctx, identity(alice), "1001")
	require.NoError(t, err)
	assert.Equal(t, 950.0, info.MT5Equity)

	_, err = f.alerts.GetTradeInfo(f.ctx, identity(bob), "2001")
	assertAppErr(t, err, apperr.KindNotFound, "Trade account info not found")

	infos, err := f.alerts.ListTradeInfo(f.ctx, identity(bob))
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, err = f.alerts.ListAlerts(f.ctx, models.Identity{Role: "guest"})
	assertAppErr(t, err, apperr.KindUnauthorized, "Unauthorized access")
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAgent(t, "alice", true)
	bob := f.seedAgent(t, "bob", true)
	f.createAccount(t, alice, "1001", 50)
	alert := &models.AccountAlert{AccountLoginID: "1001", AlertFlag: true, AlertOn: time.Now()}
	f.store.PutAlert(alert)
	id := alert.ID.Hex()

	_, err := f.alerts.AcknowledgeAlert(f.ctx, identity(f.admin), id)
	assertAppErr(t, err, apperr.KindUnauthorized, "Only agents can update account alerts")

	_, err = f.alerts.AcknowledgeAlert(f.ctx, identity(bob), id)
	assertAppErr(t, err, apperr.KindUnauthorized, "Unauthorized to update this account's alert")

	updated, err := f.alerts.AcknowledgeAlert(f.ctx, identity(alice), id)
	require.NoError(t, err)
	assert.False(t, updated.AlertFlag)
	assert.False(t, updated.AlertOff.IsZero())
	assert.Equal(t, updated.AlertOff, updated.LastChecked)
	assert.Contains(t, f.notifier.types(), models.NotificationAlertCleared)

	_, err = f.alerts.AcknowledgeAlert(f.ctx, identity(alice), id)
	assertAppErr(t, err, apperr.KindValidation, "Alert flag is already false")

	_, err = f.alerts.AcknowledgeAlert(f.ctx, identity(alice), "missing")
	assertAppErr(t, err, apperr.KindNotFound, "Account alert not found")
}

func TestGetCounts(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAgent(t, "alice", true)
	bob := f.seedAgent(t, "bob", true)
	f.createAccount(t, alice, "1001", 50)
	f.createAccount(t, alice, "1002", 50)
	f.createAccount(t, bob, "2001", 50)

	admin, err := f.dashboard.GetCounts(f.ctx, identity(f.admin))
	require.NoError(t, err)
	require.NotNil(t, admin.Agent)
	assert.EqualValues(t, 2, *admin.Agent)
	assert.EqualValues(t, 3, admin.AccountCount)

	agent, err := f.dashboard.GetCounts(f.ctx, identity(alice))
	require.NoError(t, err)
	assert.Nil(t, agent.Agent)
	assert.EqualValues(t, 2, agent.AccountCount)

	_, err = f.dashboard.GetCounts(f.ctx, models.Identity{Role: "guest"})
	assertAppErr(t, err, apperr.KindUnauthorized, "Unauthorized access")
}
