package crawl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcap/profile-api/internal/cache"
	"github.com/socialcap/profile-api/internal/domain"
)

// fakeFetcher serves canned results and records every URL fetched.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]domain.PageResult
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) domain.PageResult {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if p, ok := f.pages[url]; ok {
		p.URL = url
		p.FetchedAt = time.Now()
		return p
	}
	return domain.PageResult{URL: url, Status: domain.StatusHTTPError, HTTPStatus: 404, FetchedAt: time.Now()}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ok(body string) domain.PageResult {
	return domain.PageResult{Status: domain.StatusOK, HTTPStatus: 200, Body: body}
}

const homeBody = `<html><head><title>Acme</title></head><body>
<nav>
<a href="/about">About Us</a>
<a href="/contact">Contact</a>
<a href="/services">Our Services</a>
<a href="/blog">Blog</a>
<a href="https://other.test/about">Partner</a>
</nav>
</body></html>`

func newTestCrawler(f Fetcher, c *cache.Cache) *Crawler {
	return New(f, c, Config{PageBudget: 4, CacheTTL: time.Minute}, nil)
}

func TestCrawlRootUnreachable(t *testing.T) {
	f := &fakeFetcher{pages: map[string]domain.PageResult{
		"https://down.test/": {Status: domain.StatusConnError},
	}}
	c := newTestCrawler(f, cache.New())

	res, err := c.Crawl(context.Background(), "https://down.test", 0)
	require.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Empty(t, res.Pages)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, domain.StatusConnError, res.Attempts[0].Status)
}

func TestCrawlSelectsVocabularyPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]domain.PageResult{
		"https://acme.test/":         ok(homeBody),
		"https://acme.test/about":    ok("<html><body><p>about</p></body></html>"),
		"https://acme.test/contact":  ok("<html><body><p>contact</p></body></html>"),
		"https://acme.test/services": ok("<html><body><p>services</p></body></html>"),
	}}
	c := newTestCrawler(f, cache.New())

	res, err := c.Crawl(context.Background(), "https://acme.test", 0)
	require.NoError(t, err)

	var urls []string
	for _, p := range res.Pages {
		urls = append(urls, p.URL)
	}
	assert.Equal(t, []string{
		"https://acme.test/",
		"https://acme.test/about",
		"https://acme.test/contact",
		"https://acme.test/services",
	}, urls, "home page first, then vocabulary priority order")

	for _, u := range f.calls {
		assert.NotContains(t, u, "blog", "non-vocabulary pages must not be fetched")
		assert.NotContains(t, u, "other.test", "external hosts must not be fetched")
	}
}

func TestCrawlBudgetCap(t *testing.T) {
	f := &fakeFetcher{pages: map[string]domain.PageResult{
		"https://acme.test/":      ok(homeBody),
		"https://acme.test/about": ok("<html><body>about</body></html>"),
	}}
	c := newTestCrawler(f, cache.New())

	res, err := c.Crawl(context.Background(), "https://acme.test", 2)
	require.NoError(t, err)
	assert.Len(t, res.Attempts, 2, "budget includes the root page")
	assert.Equal(t, 2, f.callCount())
}

func TestCrawlPageFailureDoesNotAbort(t *testing.T) {
	f := &fakeFetcher{pages: map[string]domain.PageResult{
		"https://acme.test/":         ok(homeBody),
		"https://acme.test/contact":  ok("<html><body>contact</body></html>"),
		"https://acme.test/services": ok("<html><body>services</body></html>"),
		// /about intentionally missing: the fake answers 404
	}}
	c := newTestCrawler(f, cache.New())

	res, err := c.Crawl(context.Background(), "https://acme.test", 0)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 3)
	assert.Len(t, res.Attempts, 4, "failures still appear in the attempt log")

	var failed int
	for _, a := range res.Attempts {
		if a.Status != domain.StatusOK {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestCrawlUsesCache(t *testing.T) {
	f := &fakeFetcher{pages: map[string]domain.PageResult{
		"https://acme.test/":         ok(homeBody),
		"https://acme.test/about":    ok("<html><body>about</body></html>"),
		"https://acme.test/contact":  ok("<html><body>contact</body></html>"),
		"https://acme.test/services": ok("<html><body>services</body></html>"),
	}}
	pageCache := cache.New()
	c := newTestCrawler(f, pageCache)

	_, err := c.Crawl(context.Background(), "https://acme.test", 0)
	require.NoError(t, err)
	first := f.callCount()

	res, err := c.Crawl(context.Background(), "https://acme.test", 0)
	require.NoError(t, err)
	assert.Equal(t, first, f.callCount(), "a repeat crawl within the TTL must not hit the network")
	assert.Len(t, res.Pages, 4, "cached pages still count as used")

	for _, a := range res.Attempts {
		assert.True(t, a.Cached, "attempt %s should be served from cache", a.URL)
	}
}

func TestCrawlFailuresAreNotCached(t *testing.T) {
	f := &fakeFetcher{pages: map[string]domain.PageResult{
		"https://acme.test/":      ok(`<html><body><a href="/about">About</a></body></html>`),
		"https://acme.test/about": {Status: domain.StatusBlocked, HTTPStatus: 403},
	}}
	pageCache := cache.New()
	c := newTestCrawler(f, pageCache)

	_, err := c.Crawl(context.Background(), "https://acme.test", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pageCache.Len(), "only the successful root fetch is cached")
}

func TestCrawlInvalidURL(t *testing.T) {
	c := newTestCrawler(&fakeFetcher{}, cache.New())
	_, err := c.Crawl(context.Background(), "ftp://acme.test", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}
