package repository

import (
	"context"
	"time"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AlertRepository reads the alert records maintained by the external evaluator.
// The only write is acknowledgement.
type AlertRepository interface {
	GetAlertByID(ctx context.Context, id primitive.ObjectID) (*models.AccountAlert, error)
	GetAlertByLoginID(ctx context.Context, loginID string) (*models.AccountAlert, error)
	GetAlerts(ctx context.Context, loginIDs []string) ([]*models.AccountAlert, error)
	// AcknowledgeAlert clears alertFlag only if it is still true. It reports
	// whether a record was changed.
	AcknowledgeAlert(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

type MongoAlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(client *mongo.Client, dbName, collectionName string) AlertRepository {
	collection := client.Database(dbName).Collection(collectionName)
	return &MongoAlertRepository{collection: collection}
}

func (r *MongoAlertRepository) findOne(ctx context.Context, filter bson.M) (*models.AccountAlert, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var alert models.AccountAlert
	err := r.collection.FindOne(ctx, filter).Decode(&alert)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *MongoAlertRepository) GetAlertByID(ctx context.Context, id primitive.ObjectID) (*models.AccountAlert, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAlertRepository) GetAlertByLoginID(ctx context.Context, loginID string) (*models.AccountAlert, error) {
	return r.findOne(ctx, bson.M{"AccountLoginId": loginID})
}

// GetAlerts returns every alert when loginIDs is nil, otherwise only those of the listed accounts.
func (r *MongoAlertRepository) GetAlerts(ctx context.Context, loginIDs []string) ([]*models.AccountAlert, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if loginIDs != nil {
		filter["AccountLoginId"] = bson.M{"$in": loginIDs}
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"alertOn": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	alerts := []*models.AccountAlert{}
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *MongoAlertRepository) AcknowledgeAlert(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "alertFlag": true},
		bson.M{"$set": bson.M{"alertFlag": false, "alertOff": at, "lastChecked": at}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}
