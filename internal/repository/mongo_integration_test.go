//go:build integration

package repository

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/limits"
	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testDB = "equitywatch_test"

// Run with: go test -tags=integration -timeout 180s ./internal/repository/...
func startMongo(t *testing.T) *mongo.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate mongo container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	require.NoError(t, EnsureIndexes(ctx, client.Database(testDB)))
	return client
}

func TestMongoRepositories(t *testing.T) {
	client := startMongo(t)
	ctx := context.Background()

	users := NewUserRepository(client, testDB, UsersCollection)
	accounts := NewAccountRepository(client, testDB, AccountsCollection)
	alerts := NewAlertRepository(client, testDB, AlertsCollection)
	alarms := NewMobileAlarmRepository(client, testDB, MobileAlarmCollection)
	logs := NewLogRepository(client, testDB, LogsCollection)

	agent := &models.User{Role: models.RoleAgent, FirstName: "Kai", LastName: "Lee", Email: "kai@example.com", Mobile: "555", Active: true}
	require.NoError(t, users.SaveUser(ctx, agent))

	t.Run("unique email", func(t *testing.T) {
		dup := &models.User{Role: models.RoleAgent, Email: "kai@example.com", Mobile: "556"}
		assert.ErrorIs(t, users.SaveUser(ctx, dup), ErrDuplicateKey)
	})

	t.Run("email or mobile lookup excludes self", func(t *testing.T) {
		u, err := users.FindByEmailOrMobile(ctx, "other@example.com", "555", primitive.NilObjectID)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, agent.ID, u.ID)

		u, err = users.FindByEmailOrMobile(ctx, "kai@example.com", "555", agent.ID)
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	fixed := limits.Fixed
	lower := 100.0
	account := &models.Account{
		AccountLoginID:  "9001",
		AccountPassword: "hash",
		ServerName:      "Live",
		EquityType:      &fixed,
		EquityThreshold: &lower,
		AgentHolderID:   agent.ID,
		AgentHolderName: agent.FullName(),
		Active:          true,
		CreatedOn:       time.Now(),
	}
	require.NoError(t, accounts.SaveAccount(ctx, account))

	t.Run("unique login id", func(t *testing.T) {
		dup := &models.Account{AccountLoginID: "9001", AgentHolderID: agent.ID}
		assert.ErrorIs(t, accounts.SaveAccount(ctx, dup), ErrDuplicateKey)
	})

	t.Run("update clears a side with nulls", func(t *testing.T) {
		pct := limits.Percentage
		upper := 50.0
		got, err := accounts.UpdateAccount(ctx, account.ID, &models.AccountUpdate{
			Lower:     &limits.Limit{},
			Upper:     &limits.Limit{Type: &pct, Threshold: &upper},
			UpdatedBy: "Kai",
			UpdatedOn: time.Now(),
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.EquityType)
		assert.Nil(t, got.EquityThreshold)
		require.NotNil(t, got.UpperLimitEquityThreshold)
		assert.Equal(t, 50.0, *got.UpperLimitEquityThreshold)

		var raw bson.M
		require.NoError(t, client.Database(testDB).Collection(AccountsCollection).
			FindOne(ctx, bson.M{"_id": account.ID}).Decode(&raw))
		v, present := raw["EquityThreshhold"]
		assert.True(t, present)
		assert.Nil(t, v)
	})

	t.Run("cascade deactivation and device tokens", func(t *testing.T) {
		require.NoError(t, accounts.AddDeviceTokenByAgent(ctx, agent.ID, "dev-1"))
		n, err := accounts.DeactivateByAgent(ctx, agent.ID, "admin", time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := accounts.GetAccountByLoginID(ctx, "9001")
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, []string{"dev-1"}, got.DeviceTokens)

		ids, err := accounts.LoginIDsByAgent(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"9001"}, ids)
	})

	t.Run("alert acknowledgement is conditional", func(t *testing.T) {
		alert := models.AccountAlert{ID: primitive.NewObjectID(), AccountLoginID: "9001", AlertFlag: true, AlertOn: time.Now()}
		_, err := client.Database(testDB).Collection(AlertsCollection).InsertOne(ctx, alert)
		require.NoError(t, err)

		changed, err := alerts.AcknowledgeAlert(ctx, alert.ID, time.Now())
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = alerts.AcknowledgeAlert(ctx, alert.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, changed)

		list, err := alerts.GetAlerts(ctx, []string{"9001"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.False(t, list[0].AlertFlag)
	})

	t.Run("mobile alarm search and paging", func(t *testing.T) {
		now := time.Now()
		entries := []*models.MobileAlarmLog{
			{AccountID: account.ID, AccountLoginID: "9001", AgentHolderID: agent.ID, MobileAlertStatus: true, ChangedOn: now.Add(-2 * time.Minute)},
			{AccountID: account.ID, AccountLoginID: "9001", AgentHolderID: agent.ID, PreviousStatus: true, ChangedOn: now.Add(-time.Minute)},
			{AccountID: account.ID, AccountLoginID: "1234", AgentHolderID: agent.ID, MobileAlertStatus: true, ChangedOn: now},
		}
		require.NoError(t, alarms.SaveMobileAlarmLogs(ctx, entries))

		page, total, err := alarms.FindMobileAlarmLogs(ctx, models.MobileAlarmQuery{Page: 1, Limit: 1, Search: "90"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, page, 1)
		assert.False(t, page[0].MobileAlertStatus, "newest first")

		on := true
		_, total, err = alarms.FindMobileAlarmLogs(ctx, models.MobileAlarmQuery{Page: 1, Limit: 10, Status: &on})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("audit log", func(t *testing.T) {
		require.NoError(t, logs.SaveLog(ctx, &models.LogEntry{UserID: agent.ID, Action: "Login"}))
		require.NoError(t, logs.SaveLog(ctx, &models.LogEntry{Action: "Other"}))

		mine, err := logs.GetLogsByUserID(ctx, agent.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "Login", mine[0].Action)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := users.DeleteUser(ctx, agent.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = users.DeleteUser(ctx, agent.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
