// Package mongodb implements the canonical store: tracking sets with their
// embedded work queue, aggregated profiles and posts.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI            string
	Database       string
	TrackingSets   string
	Profiles       string
	Posts          string
	ConnectTimeout time.Duration
}

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the indexes the pipeline and the read side rely on.
// It is a no-op once they exist.
func EnsureIndexes(ctx context.Context, db *mongo.Database, cfg Config) error {
	indexes := map[string][]mongo.IndexModel{
		cfg.TrackingSets: {
			{Keys: bson.D{{Key: "profiles.status", Value: 1}, {Key: "profiles.platform", Value: 1}}},
			{Keys: bson.D{{Key: "updatedAt", Value: 1}, {Key: "_id", Value: 1}}},
		},
		cfg.Profiles: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		cfg.Posts: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "collectionid", Value: 1}, {Key: "publicationTime", Value: -1}}},
			{Keys: bson.D{{Key: "userid", Value: 1}, {Key: "publicationTime", Value: -1}}},
			{Keys: bson.D{{Key: "source", Value: 1}, {Key: "publicationTime", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// docID maps a tracking set id back to its stored form. Sets created by the
// API carry ObjectIDs; anything else is kept as a plain string.
func docID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
