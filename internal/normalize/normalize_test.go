package normalize

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func decode(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestNormalize_TwitterScenario(t *testing.T) {
	raw := decode(t, `[{"postId":"123","likes":"45","text":"hello","users":[{"username":"alice"}]}]`)

	records := Normalize(raw, "twitter", fixedNow)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "twitter#123", r.ID)
	assert.Equal(t, "Twitter", r.Source)
	assert.Equal(t, "hello", r.Title)
	assert.Equal(t, int64(45), r.Likes)
	assert.Equal(t, int64(0), r.Shares)
	assert.Equal(t, int64(0), r.Comments)
	assert.Equal(t, []any{}, r.Images)
	assert.Equal(t, []any{}, r.Videos)
	assert.Equal(t, []any{}, r.Documents)
	assert.Equal(t, []any{}, r.LikePeople)
	assert.Equal(t, []any{}, r.CommentDetail)
	assert.Equal(t, fixedNow.UnixMilli(), r.PublicationTime)
	assert.Equal(t, fixedNow, r.PublishedAt)
	require.Len(t, r.Authors, 1)
	assert.Equal(t, "alice", r.Authors[0].Username)
}

func TestNormalize_PayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"bare list", decode(t, `[{"id":1},{"id":2}]`), 2},
		{"items key", decode(t, `{"items":[{"id":1}]}`), 1},
		{"data key", decode(t, `{"data":[{"id":1},{"id":2},{"id":3}]}`), 3},
		{"items wins over data", decode(t, `{"items":[{"id":1}],"data":[{"id":1},{"id":2}]}`), 1},
		{"object without list", decode(t, `{"results":[{"id":1}]}`), 0},
		{"items not a list", decode(t, `{"items":{"id":1}}`), 0},
		{"string", "oops", 0},
		{"number", json.Number("12"), 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Normalize(tt.raw, "linkedin", fixedNow), tt.want)
		})
	}
}

func TestNormalize_IDResolution(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"explicit id", `{"id":"a1","postId":"b2"}`, "instagram#a1"},
		{"postId", `{"postId":"b2"}`, "instagram#b2"},
		{"activityId", `{"activityId":"urn:li:activity:7"}`, "instagram#urn:li:activity:7"},
		{"tweet_id", `{"tweet_id":1790000000000000123}`, "instagram#1790000000000000123"},
		{"videoId", `{"videoId":"v9"}`, "instagram#v9"},
		{"shortcode", `{"shortcode":"Cx1"}`, "instagram#Cx1"},
		{"empty id falls through", `{"id":"","shortcode":"Cx1"}`, "instagram#Cx1"},
		{"object id falls through", `{"id":{"urn":"x"},"postId":"5"}`, "instagram#5"},
		{"boolean id falls through", `{"id":true,"shortcode":"s"}`, "instagram#s"},
		{"list id falls through", `{"id":["a"],"videoId":"v1"}`, "instagram#v1"},
		{"none", `{"title":"no id"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Normalize([]any{decode(t, tt.body)}, " Instagram ", fixedNow)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].ID)
			assert.Equal(t, tt.want != "", records[0].HasID())
		})
	}
}

func TestNormalize_SameRawIDDiffersAcrossPlatforms(t *testing.T) {
	raw := decode(t, `[{"id":42}]`)
	platforms := []string{"linkedin", "twitter", "instagram", "facebook", "tiktok", "youtube", "mastodon"}

	seen := make(map[string]string)
	for _, p := range platforms {
		records := Normalize(raw, p, fixedNow)
		require.Len(t, records, 1)
		id := records[0].ID
		prev, dup := seen[id]
		assert.False(t, dup, "platforms %s and %s share id %s", prev, p, id)
		seen[id] = p
	}
}

func TestNormalize_NonObjectRecordsHaveNoID(t *testing.T) {
	records := Normalize(decode(t, `["x", 3, null, {"id":"ok"}]`), "twitter", fixedNow)

	require.Len(t, records, 4)
	missing := 0
	for _, r := range records {
		if !r.HasID() {
			missing++
		}
	}
	assert.Equal(t, 3, missing)
}

func TestNormalize_PublicationTime(t *testing.T) {
	createTime := time.Date(2023, 6, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		body string
		want int64
	}{
		{"publicationTime ms", `{"publicationTime":1700000000000,"publishedAt":1600000000000}`, 1700000000000},
		{"publishedAt ms", `{"publishedAt":1600000000000}`, 1600000000000},
		{"string publicationTime ignored", `{"publicationTime":"1700000000000","publishedAt":1600000000000}`, 1600000000000},
		{"timestamp rfc3339", `{"timestamp":"2023-06-01T08:30:00Z"}`, createTime.UnixMilli()},
		{"timestamp date only", `{"timestamp":"2023-06-01"}`, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()},
		{"twitter created_at", `{"timestamp":"Thu Jun 01 08:30:00 +0000 2023"}`, createTime.UnixMilli()},
		{"createTime seconds", `{"createTime":1685608200}`, createTime.UnixMilli()},
		{"createTime string seconds", `{"createTime":"1685608200"}`, createTime.UnixMilli()},
		{"bad timestamp uses createTime", `{"timestamp":"yesterday","createTime":1685608200}`, createTime.UnixMilli()},
		{"bad timestamp falls back to now", `{"timestamp":"yesterday"}`, fixedNow.UnixMilli()},
		{"garbage createTime falls back to now", `{"createTime":"soon"}`, fixedNow.UnixMilli()},
		{"out of range falls back to now", `{"publicationTime":1e300}`, fixedNow.UnixMilli()},
		{"nothing", `{}`, fixedNow.UnixMilli()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Normalize([]any{decode(t, tt.body)}, "tiktok", fixedNow)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].PublicationTime)
			assert.Equal(t, time.UnixMilli(tt.want).UTC(), records[0].PublishedAt)
		})
	}
}

func TestNormalize_Counters(t *testing.T) {
	tests := []struct {
		name                   string
		body                   string
		likes, shares, comment int64
	}{
		{"primary names", `{"likes":3,"shares":2,"comment":1}`, 3, 2, 1},
		{"aliases", `{"likeCount":"7","retweet_count":5,"reply_count":"4"}`, 7, 5, 4},
		{"favorite_count and reposts", `{"favorite_count":9,"reposts":8,"commentCount":6}`, 9, 8, 6},
		{"non numeric string is zero", `{"likes":"lots","shares":"n/a","comments":"many"}`, 0, 0, 0},
		{"non numeric falls through to alias", `{"likes":"lots","likeCount":11}`, 11, 0, 0},
		{"comment list is not a count", `{"comments":[{"text":"hi"}],"commentCount":2}`, 0, 0, 2},
		{"decimal string truncates", `{"likes":" 12.9 "}`, 12, 0, 0},
		{"NaN string is zero", `{"likes":"NaN"}`, 0, 0, 0},
		{"bool is zero", `{"likes":true}`, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Normalize([]any{decode(t, tt.body)}, "facebook", fixedNow)
			require.Len(t, records, 1)
			assert.Equal(t, tt.likes, records[0].Likes)
			assert.Equal(t, tt.shares, records[0].Shares)
			assert.Equal(t, tt.comment, records[0].Comments)
		})
	}
}

func TestNormalize_ListFieldsAlwaysSequences(t *testing.T) {
	image := map[string]any{"url": "https://cdn.example/a.jpg"}

	tests := []struct {
		name string
		in   any
		want []any
	}{
		{"nil", nil, []any{}},
		{"absent", "absent", []any{}},
		{"single object", image, []any{image}},
		{"single string", "https://cdn.example/b.jpg", []any{"https://cdn.example/b.jpg"}},
		{"list", []any{image, "x"}, []any{image, "x"}},
		{"empty list", []any{}, []any{}},
	}

	fields := []string{"images", "videos", "documents", "like_people", "comment_detail"}

	for _, tt := range tests {
		for _, field := range fields {
			t.Run(tt.name+"/"+field, func(t *testing.T) {
				rec := map[string]any{"id": "1"}
				if tt.in != "absent" {
					rec[field] = tt.in
				}
				records := Normalize([]any{rec}, "linkedin", fixedNow)
				require.Len(t, records, 1)

				got := map[string][]any{
					"images":         records[0].Images,
					"videos":         records[0].Videos,
					"documents":      records[0].Documents,
					"like_people":    records[0].LikePeople,
					"comment_detail": records[0].CommentDetail,
				}[field]
				assert.NotNil(t, got)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestNormalize_MediaAliases(t *testing.T) {
	raw := decode(t, `[{"id":"1","thumbnails":"t.jpg","media":{"video":{"src":"v.mp4"}},"docs":["d.pdf"]}]`)

	records := Normalize(raw, "youtube", fixedNow)

	require.Len(t, records, 1)
	assert.Equal(t, []any{"t.jpg"}, records[0].Images)
	assert.Equal(t, []any{map[string]any{"src": "v.mp4"}}, records[0].Videos)
	assert.Equal(t, []any{"d.pdf"}, records[0].Documents)
}

func TestNormalize_URLAndTitleAliases(t *testing.T) {
	raw := decode(t, `[
		{"id":"1","permalink":"https://x/p/1","caption":"cap"},
		{"id":"2","url":"","tweetUrl":"https://x/t/2","description":"desc"},
		{"id":"3"},
		{"id":"4","url":["u"],"link":"https://x/l/4","title":{"t":1},"text":"hi"}
	]`)

	records := Normalize(raw, "twitter", fixedNow)

	require.Len(t, records, 4)
	assert.Equal(t, "https://x/p/1", records[0].URL)
	assert.Equal(t, "cap", records[0].Title)
	assert.Equal(t, "https://x/t/2", records[1].URL)
	assert.Equal(t, "desc", records[1].Title)
	assert.Equal(t, "", records[2].URL)
	assert.Equal(t, "", records[2].Title)
	assert.Equal(t, "https://x/l/4", records[3].URL)
	assert.Equal(t, "hi", records[3].Title)
}

func TestNormalize_Authors(t *testing.T) {
	raw := decode(t, `[
		{"id":"1","users":{"handle":"bob","followers":"120","experience":[{"org":"acme"}],"verified":true}},
		{"id":"2","users":[{"username":"carol"},"not-an-object",{"id":77}]},
		{"id":"3"}
	]`)

	records := Normalize(raw, "linkedin", fixedNow)

	require.Len(t, records, 3)
	require.Len(t, records[0].Authors, 1)
	bob := records[0].Authors[0]
	assert.Equal(t, "bob", bob.Key())
	require.NotNil(t, bob.Followers)
	assert.Equal(t, int64(120), *bob.Followers)
	assert.Nil(t, bob.Friends)
	assert.Equal(t, []any{map[string]any{"org": "acme"}}, bob.Experience)
	assert.Equal(t, map[string]any{"verified": true}, bob.Extra)

	require.Len(t, records[1].Authors, 2)
	assert.Equal(t, "carol", records[1].Authors[0].Key())
	assert.Equal(t, "77", records[1].Authors[1].Key())

	assert.Empty(t, records[2].Authors)
}

func TestNormalize_Idempotent(t *testing.T) {
	body := `{"data":[
		{"id":"1","likes":"5","timestamp":"2024-01-01T00:00:00Z","images":["a"],"users":[{"username":"u1","followers":3}]},
		{"shortcode":"x","createTime":1700000000,"video":"v.mp4"},
		{"title":"dropped"}
	]}`

	first, err := json.Marshal(Normalize(decode(t, body), "instagram", fixedNow))
	require.NoError(t, err)
	second, err := json.Marshal(Normalize(decode(t, body), "instagram", fixedNow))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"linkedin":  "LinkedIn",
		"TWITTER":   "Twitter",
		" instagram": "Instagram",
		"facebook":  "Facebook",
		"tiktok":    "TikTok",
		"YouTube":   "YouTube",
		"mastodon":  "mastodon",
		"":          "Unknown",
		"   ":       "Unknown",
	}

	for in, want := range tests {
		assert.Equal(t, want, Label(in), "Label(%q)", in)
	}
}

func TestProfileURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/in/jane", ProfileURL("LinkedIn", "jane"))
	assert.Equal(t, "https://twitter.com/jane", ProfileURL("Twitter", "jane"))
	assert.Equal(t, "https://www.tiktok.com/@jane", ProfileURL("TikTok", "jane"))
	assert.Equal(t, "https://www.youtube.com/@jane", ProfileURL("YouTube", "jane"))
	assert.Equal(t, "", ProfileURL("LinkedIn", "https://linkedin.com/in/jane"))
	assert.Equal(t, "", ProfileURL("mastodon", "jane"))
	assert.Equal(t, "", ProfileURL("Twitter", ""))
}
