// internal/database/mongodb.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"cropwise-backend/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	database := client.Database(cfg.DatabaseName)

	log.Printf("Connected to MongoDB: %s", cfg.DatabaseName)

	return &MongoDB{
		Client:   client,
		Database: database,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb disconnect: %w", err)
	}

	log.Println("Disconnected from MongoDB")
	return nil
}

// CreateIndexes creates the indexes for all collections.
// NOTE: bson.D keeps key order, which matters for compound indexes.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	userCollection := m.Database.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	if _, err := userCollection.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	postCollection := m.Database.Collection("posts")
	postIndexes := []mongo.IndexModel{
		{
			// Feed sort
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			// Crop filter combined with feed sort
			Keys: bson.D{
				{Key: "crop_type", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "author_id", Value: 1}},
		},
	}

	if _, err := postCollection.Indexes().CreateMany(ctx, postIndexes); err != nil {
		return fmt.Errorf("post indexes: %w", err)
	}

	commentCollection := m.Database.Collection("comments")
	commentIndexes := []mongo.IndexModel{
		{
			// Comments of a post sorted by score
			Keys: bson.D{
				{Key: "post_id", Value: 1},
				{Key: "vote_count", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "author_id", Value: 1}},
		},
	}

	if _, err := commentCollection.Indexes().CreateMany(ctx, commentIndexes); err != nil {
		return fmt.Errorf("comment indexes: %w", err)
	}

	voteCollection := m.Database.Collection("votes")
	voteIndexes := []mongo.IndexModel{
		{
			// One vote record per user per subject
			Keys: bson.D{
				{Key: "subject_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := voteCollection.Indexes().CreateMany(ctx, voteIndexes); err != nil {
		return fmt.Errorf("vote indexes: %w", err)
	}

	fieldCollection := m.Database.Collection("fields")
	fieldIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
		{
			// Geospatial lookups for the alert sweep
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := fieldCollection.Indexes().CreateMany(ctx, fieldIndexes); err != nil {
		return fmt.Errorf("field indexes: %w", err)
	}

	outbreakCollection := m.Database.Collection("outbreaks")
	outbreakIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "creator_id", Value: 1}},
		},
	}

	if _, err := outbreakCollection.Indexes().CreateMany(ctx, outbreakIndexes); err != nil {
		return fmt.Errorf("outbreak indexes: %w", err)
	}

	notificationCollection := m.Database.Collection("notifications")
	notificationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "is_read", Value: 1},
			},
		},
	}

	if _, err := notificationCollection.Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("notification indexes: %w", err)
	}

	log.Println("✅ Indexes created for all collections")
	return nil
}
