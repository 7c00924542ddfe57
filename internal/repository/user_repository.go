package repository

import (
	"context"
	"fmt"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByEmailOrMobile returns any user other than exclude holding email or mobile.
	FindByEmailOrMobile(ctx context.Context, email, mobile string, exclude primitive.ObjectID) (*models.User, error)
	GetUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, upd *models.UserUpdate) (*models.User, error)
	SetSessionToken(ctx context.Context, id primitive.ObjectID, token *string) error
	AddDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
	RemoveDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(client *mongo.Client, dbName, collectionName string) UserRepository {
	collection := client.Database(dbName).Collection(collectionName)
	return &MongoUserRepository{collection: collection}
}

func (r *MongoUserRepository) SaveUser(ctx context.Context, user *models.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.DeviceTokens == nil {
		user.DeviceTokens = []string{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	return translate(err)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) find(ctx context.Context, filter bson.M) ([]*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.M{"createdOn": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) FindByEmailOrMobile(ctx context.Context, email, mobile string, exclude primitive.ObjectID) (*models.User, error) {
	or := bson.A{}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if mobile != "" {
		or = append(or, bson.M{"mobile": mobile})
	}
	if len(or) == 0 {
		return nil, nil
	}
	filter := bson.M{"$or": or}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return r.findOne(ctx, filter)
}

func (r *MongoUserRepository) GetUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	return r.find(ctx, bson.M{"role": role})
}

func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoUserRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{"role": role})
}

func (r *MongoUserRepository) UpdateUser(ctx context.Context, id primitive.ObjectID, upd *models.UserUpdate) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"updatedBy": upd.UpdatedBy,
		"updatedOn": upd.UpdatedOn,
	}
	if upd.FirstName != nil {
		set["firstName"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["lastName"] = *upd.LastName
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Mobile != nil {
		set["mobile"] = *upd.Mobile
	}
	if upd.Password != nil {
		set["password"] = *upd.Password
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *MongoUserRepository) SetSessionToken(ctx context.Context, id primitive.ObjectID, token *string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"jwtTokens": token}})
	return err
}

func (r *MongoUserRepository) AddDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"fcmtokens": token}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no user found with ID: %s", id.Hex())
	}
	return nil
}

func (r *MongoUserRepository) RemoveDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"fcmtokens": token}})
	return err
}

func (r *MongoUserRepository) DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}
