package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social_fetcher/internal/domain"
)

var pendingStatus = primitive.Regex{Pattern: "^" + domain.StatusPending + "$", Options: "i"}

type trackingSetDoc struct {
	ID        any            `bson:"_id"`
	Name      string         `bson:"name"`
	Platform  string         `bson:"platform"`
	Profiles  []workItemDoc  `bson:"profiles"`
	CreatedAt time.Time      `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
	Extra     map[string]any `bson:",inline"`
}

type workItemDoc struct {
	Platform    string             `bson:"platform"`
	Username    string             `bson:"username"`
	Name        string             `bson:"name"`
	Status      string             `bson:"status"`
	ProcessedAt *time.Time         `bson:"processedAt,omitempty"`
	LastUpsert  *domain.LastUpsert `bson:"lastUpsert,omitempty"`
	Extra       map[string]any     `bson:",inline"`
}

func (d trackingSetDoc) toDomain() *domain.TrackingSet {
	set := &domain.TrackingSet{
		ID:        idString(d.ID),
		Name:      d.Name,
		Platform:  d.Platform,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Items:     make([]domain.WorkItem, len(d.Profiles)),
	}
	for i, p := range d.Profiles {
		set.Items[i] = domain.WorkItem{
			Platform:    p.Platform,
			Username:    p.Username,
			Name:        p.Name,
			Status:      p.Status,
			ProcessedAt: p.ProcessedAt,
			LastUpsert:  p.LastUpsert,
			Extra:       p.Extra,
		}
	}
	return set
}

type TrackingSetStore struct {
	coll *mongo.Collection
}

func NewTrackingSetStore(db *mongo.Database, name string) *TrackingSetStore {
	return &TrackingSetStore{coll: db.Collection(name)}
}

// OldestPending returns the least recently modified set that still has a
// pending work item, or nil when there is nothing to do.
func (s *TrackingSetStore) OldestPending(ctx context.Context) (*domain.TrackingSet, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "updatedAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"name": 1, "platform": 1, "profiles": 1, "createdAt": 1, "updatedAt": 1})

	var doc trackingSetDoc
	err := s.coll.FindOne(ctx, bson.M{"profiles.status": pendingStatus}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending tracking set: %w", err)
	}
	return doc.toDomain(), nil
}

// Complete marks one work item completed, but only while it is still
// pending. It reports whether the item was updated.
func (s *TrackingSetStore) Complete(ctx context.Context, setID string, index int, c domain.Completion) (bool, error) {
	filter, update := completionUpdate(setID, index, c)

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("complete work item %s#%d: %w", setID, index, err)
	}
	return res.ModifiedCount == 1, nil
}

func completionUpdate(setID string, index int, c domain.Completion) (bson.M, bson.M) {
	path := "profiles." + strconv.Itoa(index)

	filter := bson.M{
		"_id":             docID(setID),
		path + ".status": pendingStatus,
	}
	update := bson.M{
		"$set": bson.M{
			path + ".status":      domain.StatusCompleted,
			path + ".processedAt": c.ProcessedAt,
			path + ".data":        bson.M{"items": c.Items},
			path + ".lastUpsert":  c.LastUpsert,
			"updatedAt":           c.ProcessedAt,
		},
	}
	return filter, update
}
