package domain

import (
	"strings"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// TrackingSet is a named group of tracked accounts with an embedded work queue.
type TrackingSet struct {
	ID        string
	Name      string
	Platform  string
	Items     []WorkItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkItem is one (platform, username) unit of ingestion work inside a TrackingSet.
type WorkItem struct {
	Platform    string
	Username    string
	Name        string
	Status      string
	ProcessedAt *time.Time
	LastUpsert  *LastUpsert
	Extra       map[string]any
}

type LastUpsert struct {
	Upserted int64 `bson:"upserted" json:"upserted"`
	Modified int64 `bson:"modified" json:"modified"`
	Matched  int64 `bson:"matched" json:"matched"`
	Count    int64 `bson:"count" json:"count"`
}

// IsPending reports whether the item still waits for ingestion.
func (w WorkItem) IsPending() bool {
	return strings.EqualFold(w.Status, StatusPending)
}

// NextPending returns the index of the first pending item in list order.
func (t *TrackingSet) NextPending() (int, bool) {
	for i, item := range t.Items {
		if item.IsPending() {
			return i, true
		}
	}
	return -1, false
}

// Target is the resolved fetch target for a claimed work item.
type Target struct {
	TrackingSetID   string
	TrackingSetName string
	Index           int
	Platform        string
	Username        string
}

// Resolve picks the platform and username a work item should be fetched with.
func (t *TrackingSet) Resolve(index int, defaultPlatform string) Target {
	item := t.Items[index]

	platform := item.Platform
	if strings.TrimSpace(platform) == "" {
		platform = t.Platform
	}
	if strings.TrimSpace(platform) == "" {
		platform = defaultPlatform
	}

	username := item.Username
	if username == "" {
		username = item.Name
	}

	return Target{
		TrackingSetID:   t.ID,
		TrackingSetName: t.Name,
		Index:           index,
		Platform:        strings.ToLower(strings.TrimSpace(platform)),
		Username:        username,
	}
}

// Completion is written back onto a work item once every write of a run succeeded.
type Completion struct {
	ProcessedAt time.Time
	Items       int
	LastUpsert  LastUpsert
}
