package repository

import (
	"context"
	"fmt"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection       = "users"
	AccountsCollection    = "accounts"
	AlertsCollection      = "accountAlert"
	TradeInfoCollection   = "tradeAccountInfo"
	MobileAlarmCollection = "mobilealertlogs"
	LogsCollection        = "logs"
)

// EnsureIndexes creates the indexes the repositories rely on. Creating an
// index that already exists is a no-op on the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ttl := int32(models.MobileAlarmRetention.Seconds())

	plan := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		AccountsCollection: {
			{Keys: bson.D{{Key: "AccountLoginId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "agentHolderId", Value: 1}}},
		},
		AlertsCollection: {
			{Keys: bson.D{{Key: "AccountLoginId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TradeInfoCollection: {
			{Keys: bson.D{{Key: "AccountLoginId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		MobileAlarmCollection: {
			{Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "changedOn", Value: -1}}},
			{Keys: bson.D{{Key: "changedOn", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(ttl)},
		},
		LogsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}

	for name, idx := range plan {
		ctx, cancel := withTimeout(ctx)
		_, err := db.Collection(name).Indexes().CreateMany(ctx, idx)
		cancel()
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
