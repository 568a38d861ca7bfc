package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/guestbook/backend/internal/models"
)

// linkDocument is one user's list of profile links.
type linkDocument struct {
	UserID    int64         `bson:"user_id"`
	Links     []models.Link `bson:"links"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// MongoLinkStore keeps profile links in MongoDB, one document per user.
type MongoLinkStore struct {
	col *mongo.Collection
}

func NewMongoLinkStore(db *mongo.Database) *MongoLinkStore {
	return &MongoLinkStore{col: db.Collection("profile_links")}
}

// EnsureIndexes makes user_id unique so upserts cannot fork a user's list.
func (s *MongoLinkStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *MongoLinkStore) GetLinks(ctx context.Context, userID int64) ([]models.Link, error) {
	var doc linkDocument
	err := s.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.Link{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get links: %w", err)
	}
	if doc.Links == nil {
		doc.Links = []models.Link{}
	}
	return doc.Links, nil
}

func (s *MongoLinkStore) ReplaceLinks(ctx context.Context, userID int64, links []models.Link) error {
	_, err := s.col.ReplaceOne(ctx,
		bson.M{"user_id": userID},
		linkDocument{UserID: userID, Links: links, UpdatedAt: time.Now()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo replace links: %w", err)
	}
	return nil
}

func (s *MongoLinkStore) DeleteLinks(ctx context.Context, userID int64) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("mongo delete links: %w", err)
	}
	return nil
}

// ConnectMongo connects to uri, pings the primary and returns the named
// database. Disconnect the returned client on shutdown.
func ConnectMongo(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(name), nil
}
