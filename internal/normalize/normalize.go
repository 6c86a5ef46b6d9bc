// Package normalize reshapes heterogeneous platform payloads into canonical
// post records.
package normalize

import (
	"time"

	"social_fetcher/internal/domain"
)

var (
	idKeys       = []string{"id", "postId", "activityId", "tweet_id", "videoId", "shortcode"}
	urlKeys      = []string{"url", "pageUrl", "permalink", "link", "videoUrl", "tweetUrl"}
	titleKeys    = []string{"title", "text", "caption", "description", "content"}
	likeKeys     = []string{"likes", "likeCount", "favorite_count"}
	shareKeys    = []string{"shares", "shareCount", "retweet_count", "reposts"}
	commentKeys  = []string{"comment", "comments", "commentCount", "reply_count"}
	imageKeys    = []string{"images", "thumbnails", "image", "picture"}
	videoKeys    = []string{"videos", "video"}
	documentKeys = []string{"documents", "docs"}
)

// Normalize converts a decoded payload into canonical records. It never
// fails: unsupported shapes produce an empty slice, and records without a
// resolvable id come back with an empty ID for the caller to drop.
func Normalize(raw any, platform string, now time.Time) []domain.Record {
	items := Items(raw)
	label := Label(platform)
	prefix := Platform(platform) + "#"

	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		r, _ := item.(map[string]any)
		if r == nil {
			r = map[string]any{}
		}
		records = append(records, normalizeRecord(r, prefix, label, now))
	}
	return records
}

// Items extracts the record list from a bare list or an object exposing it
// under "items" or "data".
func Items(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		if xs, ok := v["items"].([]any); ok {
			return xs
		}
		if xs, ok := v["data"].([]any); ok {
			return xs
		}
	}
	return nil
}

func normalizeRecord(r map[string]any, prefix, label string, now time.Time) domain.Record {
	var id string
	if raw := firstText(r, idKeys...); raw != "" {
		id = prefix + raw
	}

	ms := publicationMillis(r, now)

	videos := firstTruthy(r, videoKeys...)
	if videos == nil {
		if media, ok := r["media"].(map[string]any); ok {
			videos = media["video"]
		}
	}

	return domain.Record{
		Post: domain.Post{
			ID:              id,
			Source:          label,
			Title:           firstText(r, titleKeys...),
			URL:             firstText(r, urlKeys...),
			PublicationTime: ms,
			PublishedAt:     time.UnixMilli(ms).UTC(),
			Likes:           counter(r, likeKeys...),
			Shares:          counter(r, shareKeys...),
			Comments:        counter(r, commentKeys...),
			Images:          list(firstTruthy(r, imageKeys...)),
			Videos:          list(videos),
			Documents:       list(firstTruthy(r, documentKeys...)),
			LikePeople:      list(r["like_people"]),
			CommentDetail:   list(r["comment_detail"]),
		},
		Authors: authors(r["users"]),
	}
}
