package domain

import "time"

// Post is the canonical post row, keyed by "<platform>#<raw id>".
type Post struct {
	ID              string
	Source          string
	Title           string
	URL             string
	PublicationTime int64
	PublishedAt     time.Time
	Likes           int64
	Shares          int64
	Comments        int64
	Images          []any
	Videos          []any
	Documents       []any
	LikePeople      []any
	CommentDetail   []any
}

// Record is one normalized upstream item: the post plus the author
// snapshots embedded in it. Authors feed profile aggregation only.
type Record struct {
	Post
	Authors []Author
}

// HasID reports whether the record can be persisted.
func (r Record) HasID() bool {
	return r.ID != ""
}

// PostWrite is the ownership stamped on a post when it is first inserted.
type PostWrite struct {
	TrackingSetID string
	Username      string
	Source        string
	Now           time.Time
}
