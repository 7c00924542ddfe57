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

type AccountRepository interface {
	SaveAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	GetAccountByLoginID(ctx context.Context, loginID string) (*models.Account, error)
	GetAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error)
	GetAccountsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Account, error)
	CountAccounts(ctx context.Context, filter models.AccountFilter) (int64, error)
	UpdateAccount(ctx context.Context, id primitive.ObjectID, upd *models.AccountUpdate) (*models.Account, error)
	SetMobileAlert(ctx context.Context, id primitive.ObjectID, value bool, by string, at time.Time) error
	// DeactivateByAgent sets active=false on every account held by agentID.
	DeactivateByAgent(ctx context.Context, agentID primitive.ObjectID, by string, at time.Time) (int64, error)
	RenameHolder(ctx context.Context, agentID primitive.ObjectID, name string) error
	AddDeviceTokenByAgent(ctx context.Context, agentID primitive.ObjectID, token string) error
	RemoveDeviceTokenByAgent(ctx context.Context, agentID primitive.ObjectID, token string) error
	DeleteAccount(ctx context.Context, id primitive.ObjectID) (bool, error)
	LoginIDsByAgent(ctx context.Context, agentID primitive.ObjectID) ([]string, error)
}

type MongoAccountRepository struct {
	collection *mongo.Collection
}

func NewAccountRepository(client *mongo.Client, dbName, collectionName string) AccountRepository {
	collection := client.Database(dbName).Collection(collectionName)
	return &MongoAccountRepository{collection: collection}
}

func filterDoc(filter models.AccountFilter) bson.M {
	doc := bson.M{}
	if filter.AgentHolderID != nil {
		doc["agentHolderId"] = *filter.AgentHolderID
	}
	return doc
}

func (r *MongoAccountRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	if account.DeviceTokens == nil {
		account.DeviceTokens = []string{}
	}
	_, err := r.collection.InsertOne(ctx, account)
	return translate(err)
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var account models.Account
	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *MongoAccountRepository) find(ctx context.Context, filter bson.M) ([]*models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"createdOn": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	accounts := []*models.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *MongoAccountRepository) GetAccountByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAccountRepository) GetAccountByLoginID(ctx context.Context, loginID string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"AccountLoginId": loginID})
}

func (r *MongoAccountRepository) GetAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	return r.find(ctx, filterDoc(filter))
}

func (r *MongoAccountRepository) GetAccountsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoAccountRepository) CountAccounts(ctx context.Context, filter models.AccountFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return r.collection.CountDocuments(ctx, filterDoc(filter))
}

func (r *MongoAccountRepository) UpdateAccount(ctx context.Context, id primitive.ObjectID, upd *models.AccountUpdate) (*models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"updatedBy": upd.UpdatedBy,
		"updatedOn": upd.UpdatedOn,
	}
	if upd.AccountLoginID != nil {
		set["AccountLoginId"] = *upd.AccountLoginID
	}
	if upd.AccountPassword != nil {
		set["AccountPassword"] = *upd.AccountPassword
	}
	if upd.ServerName != nil {
		set["ServerName"] = *upd.ServerName
	}
	if upd.Lower != nil {
		set["EquityType"] = upd.Lower.Type
		set["EquityThreshhold"] = upd.Lower.Threshold
	}
	if upd.Upper != nil {
		set["UpperLimitEquityType"] = upd.Upper.Type
		set["UpperLimitEquityThreshhold"] = upd.Upper.Threshold
	}
	if upd.MessageCheck != nil {
		set["messageCheck"] = *upd.MessageCheck
	}
	if upd.EmailCheck != nil {
		set["emailCheck"] = *upd.EmailCheck
	}
	if upd.UpperLimitMessageCheck != nil {
		set["UpperLimitMessageCheck"] = *upd.UpperLimitMessageCheck
	}
	if upd.UpperLimitEmailCheck != nil {
		set["UpperLimitEmailCheck"] = *upd.UpperLimitEmailCheck
	}
	if upd.MobileAlert != nil {
		set["mobileAlert"] = *upd.MobileAlert
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	if upd.AgentHolderID != nil {
		set["agentHolderId"] = *upd.AgentHolderID
	}
	if upd.AgentHolderName != nil {
		set["agentHolderName"] = *upd.AgentHolderName
	}
	if upd.DeviceTokens != nil {
		set["fcmtokens"] = upd.DeviceTokens
	}

	var account models.Account
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *MongoAccountRepository) SetMobileAlert(ctx context.Context, id primitive.ObjectID, value bool, by string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"mobileAlert": value,
		"updatedBy":   by,
		"updatedOn":   at,
	}})
	return err
}

func (r *MongoAccountRepository) DeactivateByAgent(ctx context.Context, agentID primitive.ObjectID, by string, at time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx, bson.M{"agentHolderId": agentID}, bson.M{"$set": bson.M{
		"active":    false,
		"updatedBy": by,
		"updatedOn": at,
	}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *MongoAccountRepository) RenameHolder(ctx context.Context, agentID primitive.ObjectID, name string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateMany(ctx, bson.M{"agentHolderId": agentID}, bson.M{"$set": bson.M{"agentHolderName": name}})
	return err
}

func (r *MongoAccountRepository) AddDeviceTokenByAgent(ctx context.Context, agentID primitive.ObjectID, token string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateMany(ctx, bson.M{"agentHolderId": agentID}, bson.M{"$addToSet": bson.M{"fcmtokens": token}})
	return err
}

func (r *MongoAccountRepository) RemoveDeviceTokenByAgent(ctx context.Context, agentID primitive.ObjectID, token string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateMany(ctx, bson.M{"agentHolderId": agentID}, bson.M{"$pull": bson.M{"fcmtokens": token}})
	return err
}

func (r *MongoAccountRepository) DeleteAccount(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *MongoAccountRepository) LoginIDsByAgent(ctx context.Context, agentID primitive.ObjectID) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "AccountLoginId", bson.M{"agentHolderId": agentID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}
