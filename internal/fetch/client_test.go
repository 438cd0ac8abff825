package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/legistrack/internal/config"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/retry"
)

func newTestClient(opts Options) *Client {
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	}
	opts.UserAgent = "legistrack-test"
	return New(opts)
}

func TestGet_SetsUserAgentAndReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "legistrack-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<Bills/>"))
	}))
	defer srv.Close()

	body, err := newTestClient(Options{}).Get(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "<Bills/>", string(body))
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(Options{}).Get(context.Background(), srv.URL, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestClient(Options{}).Get(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_PersistentFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(Options{}).Get(context.Background(), srv.URL, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))
}

func TestGet_CachesWhenAsked(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("archived"))
	}))
	defer srv.Close()

	c := newTestClient(Options{CacheTTL: time.Minute})
	for range 3 {
		_, err := c.Get(context.Background(), srv.URL+"/old", true)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	for range 2 {
		_, err := c.Get(context.Background(), srv.URL+"/current", false)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_TruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	body, err := newTestClient(Options{MaxBodyBytes: 4}).Get(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}

func TestGet_RespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte("public"))
	}))
	defer srv.Close()

	c := newTestClient(Options{RespectRobots: true})
	_, err := c.Get(context.Background(), srv.URL+"/private/bills", false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))

	body, err := c.Get(context.Background(), srv.URL+"/bills", false)
	require.NoError(t, err)
	assert.Equal(t, "public", string(body))
}

func TestGet_RateLimitHonoursRetryAfter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestClient(Options{}).Get(t.Context(), srv.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 120*time.Second, parseRetryAfter("120", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Hour).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter("", now))
}
