package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcap/profile-api/internal/domain"
)

// recorder serves scripted status codes and records request user-agents.
type recorder struct {
	mu     sync.Mutex
	agents []string
	codes  []int
	body   string
}

func (rec *recorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.agents = append(rec.agents, r.Header.Get("User-Agent"))
		code := http.StatusOK
		if len(rec.codes) > 0 {
			code = rec.codes[0]
			rec.codes = rec.codes[1:]
		}
		body := rec.body
		rec.mu.Unlock()

		w.WriteHeader(code)
		if code >= 200 && code < 300 {
			_, _ = w.Write([]byte(body))
		}
	}
}

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		ConnectTimeout:   time.Second,
		ReadTimeout:      2 * time.Second,
		FinalReadTimeout: 2 * time.Second,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
	}
}

func TestFetchOK(t *testing.T) {
	rec := &recorder{body: "<html><title>ok</title></html>"}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c := New(fastPolicy(), nil)
	res := c.Fetch(context.Background(), srv.URL)

	assert.Equal(t, domain.StatusOK, res.Status)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.NotEmpty(t, res.Body)
	assert.Len(t, rec.agents, 1)
}

func TestFetch403RotatesUserAgent(t *testing.T) {
	rec := &recorder{codes: []int{http.StatusForbidden}, body: "welcome"}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c := New(fastPolicy(), nil)
	res := c.Fetch(context.Background(), srv.URL)

	require.Equal(t, domain.StatusOK, res.Status)
	require.Len(t, rec.agents, 2)
	assert.NotEqual(t, rec.agents[0], rec.agents[1],
		"the rung after a 403 must use a different user-agent")
}

func TestFetch429RotatesUserAgent(t *testing.T) {
	rec := &recorder{codes: []int{http.StatusTooManyRequests}, body: "welcome"}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c := New(fastPolicy(), nil)
	res := c.Fetch(context.Background(), srv.URL)

	require.Equal(t, domain.StatusOK, res.Status)
	require.Len(t, rec.agents, 2)
	assert.NotEqual(t, rec.agents[0], rec.agents[1])
}

func TestFetchServerErrorRetriesToBudget(t *testing.T) {
	rec := &recorder{codes: []int{500, 500, 500}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c := New(fastPolicy(), nil)
	res := c.Fetch(context.Background(), srv.URL)

	assert.Equal(t, domain.StatusHTTPError, res.Status)
	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
	assert.Empty(t, res.Body)
	assert.Len(t, rec.agents, 3, "whole attempt budget should be spent")
}

func TestFetchBlockedExhausted(t *testing.T) {
	rec := &recorder{codes: []int{403, 403, 403}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c := New(fastPolicy(), nil)
	res := c.Fetch(context.Background(), srv.URL)

	assert.Equal(t, domain.StatusBlocked, res.Status)
	assert.Empty(t, res.Body)
	assert.Len(t, rec.agents, 3)
}

func TestFetchConnectionErrorNoRetry(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listening anymore

	c := New(fastPolicy(), nil)

	start := time.Now()
	res := c.Fetch(context.Background(), url)

	assert.Equal(t, domain.StatusConnError, res.Status)
	assert.Empty(t, res.Body)
	assert.Less(t, time.Since(start), time.Second,
		"dead hosts must fail fast without retrying")
}

func TestFetchEmptyBodyIsNotOK(t *testing.T) {
	rec := &recorder{body: ""}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c := New(fastPolicy(), nil)
	res := c.Fetch(context.Background(), srv.URL)

	assert.NotEqual(t, domain.StatusOK, res.Status, "body must be non-empty iff status is ok")
	assert.Empty(t, res.Body)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
}

func TestCapDelay(t *testing.T) {
	assert.Equal(t, time.Second, capDelay(time.Second, time.Minute))
	assert.Equal(t, time.Minute, capDelay(time.Hour, time.Minute))
}
