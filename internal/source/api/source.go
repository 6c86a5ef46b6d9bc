// Package api fetches raw per-platform payloads from the configured
// scraping endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"social_fetcher/internal/domain"
	"social_fetcher/internal/metrics"
)

// Config holds fetcher configuration.
type Config struct {
	Endpoints      map[string]string
	FallbackURL    string
	QueryParam     string
	Timeout        time.Duration
	RatePerSecond  float64
	Burst          int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source resolves platform endpoints and fetches payloads from them.
type Source struct {
	httpClient     *http.Client
	endpoints      map[string]string
	fallbackURL    string
	queryParam     string
	limiter        *rate.Limiter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new Source.
func New(cfg Config, logger *slog.Logger) *Source {
	endpoints := make(map[string]string, len(cfg.Endpoints))
	for platform, u := range cfg.Endpoints {
		if u != "" {
			endpoints[strings.ToLower(strings.TrimSpace(platform))] = u
		}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	queryParam := cfg.QueryParam
	if queryParam == "" {
		queryParam = "id"
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4

	return &Source{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		endpoints:      endpoints,
		fallbackURL:    cfg.FallbackURL,
		queryParam:     queryParam,
		limiter:        rate.NewLimiter(limit, burst),
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "fetcher"),
	}
}

// Endpoint returns the URL configured for a platform, falling back to the
// default one. It fails with domain.ErrNoEndpoint when neither exists.
func (s *Source) Endpoint(platform string) (string, error) {
	if u, ok := s.endpoints[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return u, nil
	}
	if s.fallbackURL != "" {
		return s.fallbackURL, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrNoEndpoint, platform)
}

// Fetch requests the payload for one username. The body is decoded
// generically, with numbers kept as json.Number so long ids stay exact.
func (s *Source) Fetch(ctx context.Context, endpoint, username string) (any, error) {
	target, err := buildURL(endpoint, s.queryParam, username)
	if err != nil {
		return nil, err
	}

	var payload any
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		payload, err = s.fetchOnce(ctx, target)
		if err == nil {
			break
		}

		var re *retryableError
		if !errors.As(err, &re) || attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		metrics.IncFetchRetry(endpoint)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		if s.maxAttempts > 1 {
			return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
		}
		return nil, err
	}

	if payload == nil {
		return nil, domain.ErrEmptyPayload
	}
	return payload, nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (s *Source) fetchOnce(ctx context.Context, target string) (any, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SocialFetcher/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		return nil, &retryableError{fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		statusErr := fmt.Errorf("%w: %d", domain.ErrUpstreamStatus, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryableError{statusErr}
		}
		return nil, statusErr
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return payload, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if s.maxBackoff > 0 && backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func buildURL(endpoint, param, username string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set(param, username)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
