package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// jobIndexes serve status listing (newest first) and the age-based purge
func jobIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_status_created_at"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}
}

// CreateIndexes creates the indexes the job collection relies on
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	names, err := db.GetCollection(CollectionJobs).Indexes().CreateMany(ctxTimeout, jobIndexes())
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", CollectionJobs, err)
	}

	slog.Info("Created MongoDB indexes", "collection", CollectionJobs, "indexes", names)
	return nil
}
