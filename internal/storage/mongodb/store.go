// Package mongodb implements the account store using MongoDB
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/go-fiscal/internal/storage"
)

// Store implements storage.AccountStore using MongoDB
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	accounts *mongo.Collection
}

// Config holds MongoDB connection settings
type Config struct {
	URI        string
	Database   string
	Collection string
}

// NewStore connects to MongoDB and prepares the accounts collection
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "accounts"
	}
	db := client.Database(cfg.Database)

	s := &Store{
		client:   client,
		db:       db,
		accounts: db.Collection(collection),
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "metadata.cnpj", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "metadata.valid_until", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating account indexes: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks MongoDB connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) CreateAccount(ctx context.Context, account *storage.Account) error {
	_, err := s.accounts.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: cnpj %s", storage.ErrAccountExists, account.Metadata.CNPJ)
	}
	return err
}

func (s *Store) GetAccount(ctx context.Context, apiKey string) (*storage.Account, error) {
	return s.findOne(ctx, bson.M{"_id": apiKey})
}

func (s *Store) GetAccountByCNPJ(ctx context.Context, cnpj string) (*storage.Account, error) {
	return s.findOne(ctx, bson.M{"metadata.cnpj": cnpj})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*storage.Account, error) {
	var account storage.Account
	err := s.accounts.FindOne(ctx, filter).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *storage.Account) error {
	res, err := s.accounts.ReplaceOne(ctx, bson.M{"_id": account.APIKey}, account)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: cnpj %s", storage.ErrAccountExists, account.Metadata.CNPJ)
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, apiKey string) error {
	res, err := s.accounts.DeleteOne(ctx, bson.M{"_id": apiKey})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

func (s *Store) AccountExists(ctx context.Context, apiKey string) (bool, error) {
	n, err := s.accounts.CountDocuments(ctx, bson.M{"_id": apiKey}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ storage.AccountStore = (*Store)(nil)
