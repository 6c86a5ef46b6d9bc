package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social_fetcher/internal/domain"
)

type ProfileStore struct {
	coll *mongo.Collection
}

func NewProfileStore(db *mongo.Database, name string) *ProfileStore {
	return &ProfileStore{coll: db.Collection(name)}
}

// Upsert applies the patches as one unordered bulk write keyed by username.
// On a partial failure the counts of the writes that landed are returned
// together with the error.
func (s *ProfileStore) Upsert(ctx context.Context, patches []domain.ProfilePatch, now time.Time) (domain.WriteCounts, error) {
	if len(patches) == 0 {
		return domain.WriteCounts{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(patches))
	for _, p := range patches {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"username": p.Username}).
			SetUpdate(profileUpdate(p, now)).
			SetUpsert(true))
	}

	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	counts := bulkCounts(res)
	if err != nil {
		return counts, fmt.Errorf("bulk upsert profiles: %w", err)
	}
	return counts, nil
}

func profileUpdate(p domain.ProfilePatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	setOnInsert := bson.M{"username": p.Username, "createdAt": now}

	for k, v := range map[string]string{
		"name":         p.Name,
		"source":       p.Source,
		"profileImage": p.ProfileImage,
		"pageUrl":      p.PageURL,
		"description":  p.Description,
		"headline":     p.Headline,
		"about":        p.About,
		"id":           p.ExternalID,
	} {
		if v != "" {
			set[k] = v
		}
	}

	for k, v := range map[string][]any{
		"experience":  p.Experience,
		"education":   p.Education,
		"interest":    p.Interest,
		"connection":  p.Connection,
		"license":     p.License,
		"endorsement": p.Endorsement,
		"skill":       p.Skill,
	} {
		if len(v) > 0 {
			set[k] = v
		}
	}

	// A metric the batch supplies is set; one it does not is only
	// defaulted on insert. Mongo rejects the same path in both operators.
	for k, v := range map[string]*int64{
		"mentions":  p.Mentions,
		"friends":   p.Friends,
		"followers": p.Followers,
		"shares":    p.Shares,
	} {
		if v != nil {
			set[k] = *v
		} else {
			setOnInsert[k] = int64(0)
		}
	}

	return bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
		"$inc":         bson.M{"items": p.Items},
	}
}

func bulkCounts(res *mongo.BulkWriteResult) domain.WriteCounts {
	if res == nil {
		return domain.WriteCounts{}
	}
	return domain.WriteCounts{
		Upserted: res.UpsertedCount,
		Modified: res.ModifiedCount,
		Matched:  res.MatchedCount,
	}
}
