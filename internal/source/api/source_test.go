package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social_fetcher/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(endpoint string) Config {
	return Config{
		Endpoints:      map[string]string{"Twitter": endpoint},
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestSource_Endpoint(t *testing.T) {
	src := New(Config{
		Endpoints:   map[string]string{"LinkedIn": "https://li.example/api", "tiktok": ""},
		FallbackURL: "https://fallback.example/api",
	}, testLogger())

	u, err := src.Endpoint(" linkedin ")
	require.NoError(t, err)
	assert.Equal(t, "https://li.example/api", u)

	u, err = src.Endpoint("tiktok")
	require.NoError(t, err)
	assert.Equal(t, "https://fallback.example/api", u)

	noFallback := New(Config{Endpoints: map[string]string{"linkedin": "https://li.example/api"}}, testLogger())
	_, err = noFallback.Endpoint("youtube")
	assert.ErrorIs(t, err, domain.ErrNoEndpoint)
}

func TestSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("id"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"tweet_id":1790000000000000123,"likes":"4"}]}`))
	}))
	defer server.Close()

	src := New(testConfig(server.URL+"?format=json"), testLogger())

	payload, err := src.Fetch(context.Background(), server.URL+"?format=json", "alice")

	require.NoError(t, err)
	items := payload.(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, json.Number("1790000000000000123"), items[0].(map[string]any)["tweet_id"])
}

func TestSource_Fetch_CustomQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bob", r.URL.Query().Get("username"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.QueryParam = "username"
	src := New(cfg, testLogger())

	payload, err := src.Fetch(context.Background(), server.URL, "bob")

	require.NoError(t, err)
	assert.Equal(t, []any{}, payload)
}

func TestSource_Fetch_NullPayload(t *testing.T) {
	for name, body := range map[string]string{"null": "null", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			src := New(testConfig(server.URL), testLogger())

			payload, err := src.Fetch(context.Background(), server.URL, "alice")

			assert.ErrorIs(t, err, domain.ErrEmptyPayload)
			assert.Nil(t, payload)
		})
	}
}

func TestSource_Fetch_AcceptsAny2xx(t *testing.T) {
	t.Run("accepted with body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`[{"id":"1"}]`))
		}))
		defer server.Close()

		src := New(testConfig(server.URL), testLogger())

		payload, err := src.Fetch(context.Background(), server.URL, "alice")

		require.NoError(t, err)
		assert.Len(t, payload, 1)
	})

	t.Run("no content", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		src := New(testConfig(server.URL), testLogger())

		payload, err := src.Fetch(context.Background(), server.URL, "alice")

		assert.ErrorIs(t, err, domain.ErrEmptyPayload)
		assert.NotErrorIs(t, err, domain.ErrUpstreamStatus)
		assert.Nil(t, payload)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestSource_Fetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer server.Close()

	src := New(testConfig(server.URL), testLogger())

	payload, err := src.Fetch(context.Background(), server.URL, "alice")

	require.NoError(t, err)
	assert.Len(t, payload, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSource_Fetch_ExceedsRetryLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := New(testConfig(server.URL), testLogger())

	payload, err := src.Fetch(context.Background(), server.URL, "alice")

	assert.Nil(t, payload)
	assert.ErrorIs(t, err, domain.ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSource_Fetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src := New(testConfig(server.URL), testLogger())

	_, err := src.Fetch(context.Background(), server.URL, "ghost")

	assert.ErrorIs(t, err, domain.ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSource_Fetch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	src := New(testConfig(server.URL), testLogger())

	payload, err := src.Fetch(context.Background(), server.URL, "alice")

	assert.Nil(t, payload)
	assert.Contains(t, err.Error(), "decode response")
}

func TestSource_CalculateBackoff(t *testing.T) {
	src := New(Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}, testLogger())

	assert.Equal(t, time.Second, src.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, src.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, src.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, src.calculateBackoff(4))
}
