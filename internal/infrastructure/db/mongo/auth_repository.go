package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

const collectionAccounts = "accounts"

type AuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database) *AuthRepository {
	return &AuthRepository{coll: db.Collection(collectionAccounts)}
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	UserID       string             `bson:"user_id,omitempty"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (r *AuthRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := mongoAccount{
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		Role:         account.Role,
		UserID:       account.UserID,
		CreatedAt:    account.CreatedAt.Unix(),
		UpdatedAt:    account.UpdatedAt.Unix(),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	// fetch back to get ID
	created, err := r.FindByUsername(ctx, account.Username)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *AuthRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var ma mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&ma); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	return &domain.Account{
		ID:           ma.ID.Hex(),
		Username:     ma.Username,
		PasswordHash: ma.PasswordHash,
		Role:         ma.Role,
		UserID:       ma.UserID,
		CreatedAt:    unixToTime(ma.CreatedAt),
		UpdatedAt:    unixToTime(ma.UpdatedAt),
	}, nil
}

// EnsureIndexes creates the unique username index the duplicate-key check in
// Create depends on.
func (r *AuthRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
