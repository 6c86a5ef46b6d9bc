package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social_fetcher/internal/domain"
)

type PostStore struct {
	coll *mongo.Collection
}

func NewPostStore(db *mongo.Database, name string) *PostStore {
	return &PostStore{coll: db.Collection(name)}
}

// Upsert writes every post by canonical id. Ownership is stamped on insert
// only; content fields are overwritten on every write.
func (s *PostStore) Upsert(ctx context.Context, posts []domain.Post, w domain.PostWrite) (domain.WriteCounts, error) {
	if len(posts) == 0 {
		return domain.WriteCounts{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(posts))
	for _, p := range posts {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": p.ID}).
			SetUpdate(postUpdate(p, w)).
			SetUpsert(true))
	}

	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	counts := bulkCounts(res)
	if err != nil {
		return counts, fmt.Errorf("bulk upsert posts: %w", err)
	}
	return counts, nil
}

func postUpdate(p domain.Post, w domain.PostWrite) bson.M {
	source := p.Source
	if source == "" {
		source = w.Source
	}

	return bson.M{
		"$setOnInsert": bson.M{
			"id":           p.ID,
			"collectionid": docID(w.TrackingSetID),
			"userid":       w.Username,
			"createdAt":    w.Now,
		},
		"$set": bson.M{
			"source":          source,
			"title":           p.Title,
			"url":             p.URL,
			"publicationTime": p.PublicationTime,
			"publishedAt":     p.PublishedAt,
			"likes":           p.Likes,
			"shares":          p.Shares,
			"comment":         p.Comments,
			"images":          nonNil(p.Images),
			"videos":          nonNil(p.Videos),
			"documents":       nonNil(p.Documents),
			"like_people":     nonNil(p.LikePeople),
			"comment_detail":  nonNil(p.CommentDetail),
			"updatedAt":       w.Now,
		},
	}
}

// nonNil keeps list fields arrays in storage; a nil slice would encode as null.
func nonNil(xs []any) []any {
	if xs == nil {
		return []any{}
	}
	return xs
}
