package repository

import (
	"context"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TradeInfoRepository interface {
	GetTradeInfoByLoginID(ctx context.Context, loginID string) (*models.TradeAccountInfo, error)
	GetTradeInfos(ctx context.Context, loginIDs []string) ([]*models.TradeAccountInfo, error)
}

type MongoTradeInfoRepository struct {
	collection *mongo.Collection
}

func NewTradeInfoRepository(client *mongo.Client, dbName, collectionName string) TradeInfoRepository {
	collection := client.Database(dbName).Collection(collectionName)
	return &MongoTradeInfoRepository{collection: collection}
}

func (r *MongoTradeInfoRepository) GetTradeInfoByLoginID(ctx context.Context, loginID string) (*models.TradeAccountInfo, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var info models.TradeAccountInfo
	err := r.collection.FindOne(ctx, bson.M{"AccountLoginId": loginID}).Decode(&info)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *MongoTradeInfoRepository) GetTradeInfos(ctx context.Context, loginIDs []string) ([]*models.TradeAccountInfo, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if loginIDs != nil {
		filter["AccountLoginId"] = bson.M{"$in": loginIDs}
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"LastUpdatedTime": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	infos := []*models.TradeAccountInfo{}
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}
