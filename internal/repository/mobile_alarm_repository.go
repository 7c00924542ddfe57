package repository

import (
	"context"
	"regexp"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MobileAlarmRepository interface {
	SaveMobileAlarmLogs(ctx context.Context, logs []*models.MobileAlarmLog) error
	// FindMobileAlarmLogs returns one page of logs, newest first, and the total match count.
	FindMobileAlarmLogs(ctx context.Context, q models.MobileAlarmQuery) ([]*models.MobileAlarmLog, int64, error)
}

type MongoMobileAlarmRepository struct {
	collection *mongo.Collection
}

func NewMobileAlarmRepository(client *mongo.Client, dbName, collectionName string) MobileAlarmRepository {
	collection := client.Database(dbName).Collection(collectionName)
	return &MongoMobileAlarmRepository{collection: collection}
}

func (r *MongoMobileAlarmRepository) SaveMobileAlarmLogs(ctx context.Context, logs []*models.MobileAlarmLog) error {
	if len(logs) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	docs := make([]interface{}, 0, len(logs))
	for _, l := range logs {
		if l.ID.IsZero() {
			l.ID = primitive.NewObjectID()
		}
		docs = append(docs, l)
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func mobileAlarmFilter(q models.MobileAlarmQuery) bson.M {
	filter := bson.M{}
	if q.Search != "" {
		filter["accountLoginId"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	if q.Status != nil {
		filter["mobileAlertStatus"] = *q.Status
	}
	if q.StartDate != nil || q.EndDate != nil {
		rng := bson.M{}
		if q.StartDate != nil {
			rng["$gte"] = *q.StartDate
		}
		if q.EndDate != nil {
			rng["$lte"] = *q.EndDate
		}
		filter["changedOn"] = rng
	}
	return filter
}

func (r *MongoMobileAlarmRepository) FindMobileAlarmLogs(ctx context.Context, q models.MobileAlarmQuery) ([]*models.MobileAlarmLog, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := mobileAlarmFilter(q)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	logs := []*models.MobileAlarmLog{}
	if q.Page < 1 || q.Limit < 1 || q.Page-1 > total/q.Limit {
		return logs, total, nil
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "changedOn", Value: -1}}).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
