package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"choreo-backend/internal/model"
)

const usersCollection = "users"

// userDocument keeps the username both as _id and as a plain field, the shape
// existing user records already have.
type userDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt,omitempty"`
}

// MongoCredentialRepository CredentialRepository on MongoDB. The username is
// the document _id, so uniqueness is enforced by the primary index.
type MongoCredentialRepository struct {
	coll *mongo.Collection
}

// NewMongoCredentialRepository creates a MongoCredentialRepository
func NewMongoCredentialRepository(db *mongo.Database) *MongoCredentialRepository {
	return &MongoCredentialRepository{coll: db.Collection(usersCollection)}
}

func (r *MongoCredentialRepository) Create(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, userDocument{
		ID:        user.Username,
		Username:  user.Username,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *MongoCredentialRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: username}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model.User{Username: doc.ID, PasswordHash: doc.Password, CreatedAt: doc.CreatedAt}, nil
}

func (r *MongoCredentialRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
