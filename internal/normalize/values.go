package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Upstream payloads are decoded into interface values, so every accessor
// here works on the shapes encoding/json produces (json.Number when the
// decoder used UseNumber, float64 otherwise) plus plain Go ints for
// hand-built payloads.

// maxMillis is 9999-12-31T23:59:59.999Z.
const maxMillis = 253402300799999

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RubyDate,
	time.UnixDate,
	time.ANSIC,
}

// truthy mirrors what an upstream producer means by "field present".
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

func firstTruthy(r map[string]any, keys ...string) any {
	for _, k := range keys {
		if v := r[k]; truthy(v) {
			return v
		}
	}
	return nil
}

// numeric returns v when it is already a number, ignoring strings.
func numeric(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// coerce accepts numbers and numeric strings.
func coerce(v any) (float64, bool) {
	if f, ok := numeric(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// counter resolves the first coercible alias, defaulting to 0.
func counter(r map[string]any, keys ...string) int64 {
	for _, k := range keys {
		if f, ok := coerce(r[k]); ok {
			if math.Abs(f) > math.MaxInt64/2 {
				continue
			}
			return int64(f)
		}
	}
	return 0
}

func optionalCount(v any) *int64 {
	f, ok := coerce(v)
	if !ok || math.Abs(f) > math.MaxInt64/2 {
		return nil
	}
	n := int64(f)
	return &n
}

// text renders scalars as strings; anything else is "".
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// firstText returns the first alias that renders as non-empty text. Aliases
// holding objects, lists or booleans are passed over.
func firstText(r map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := text(r[k]); s != "" {
			return s
		}
	}
	return ""
}

// list makes every media/interaction field a sequence: nil -> [],
// scalar -> [x], list -> unchanged.
func list(v any) []any {
	if xs, ok := v.([]any); ok {
		return xs
	}
	if !truthy(v) {
		return []any{}
	}
	return []any{v}
}

// listOnly keeps real lists and drops everything else.
func listOnly(v any) []any {
	xs, _ := v.([]any)
	return xs
}

func validMillis(f float64) (int64, bool) {
	if math.Abs(f) > maxMillis {
		return 0, false
	}
	return int64(f), true
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// publicationMillis resolves the epoch-millisecond publication time.
func publicationMillis(r map[string]any, now time.Time) int64 {
	for _, k := range []string{"publicationTime", "publishedAt"} {
		if f, ok := numeric(r[k]); ok {
			if ms, ok := validMillis(f); ok {
				return ms
			}
		}
	}
	if s, ok := r["timestamp"].(string); ok && s != "" {
		if t, ok := parseTime(s); ok {
			if ms, ok := validMillis(float64(t.UnixMilli())); ok {
				return ms
			}
		}
	}
	if v := r["createTime"]; truthy(v) {
		if sec, ok := coerce(v); ok {
			if ms, ok := validMillis(sec * 1000); ok {
				return ms
			}
		}
	}
	return now.UnixMilli()
}
