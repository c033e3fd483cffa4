// Package crawl selects and fetches a bounded set of same-site pages
// worth analyzing: the home page plus links matching a small fixed
// vocabulary (about, contact, services, products, team).
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/socialcap/profile-api/internal/cache"
	"github.com/socialcap/profile-api/internal/domain"
)

// DefaultPageBudget caps pages per crawl, including the root.
const DefaultPageBudget = 4

// candidateVocab drives link selection, in priority order.
var candidateVocab = []string{"about", "contact", "service", "product", "team"}

// Fetcher retrieves one page. Satisfied by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) domain.PageResult
}

// Config holds crawl tuning values.
type Config struct {
	// PageBudget is the default page cap when the caller passes none.
	PageBudget int
	// CacheTTL is how long successful fetches stay reusable.
	CacheTTL time.Duration
}

// Crawler runs bounded same-site crawls with cache-checked fetching.
type Crawler struct {
	fetcher Fetcher
	cache   *cache.Cache
	budget  int
	ttl     time.Duration
	log     *zap.Logger
}

// New creates a Crawler. pageCache may be nil to disable caching.
func New(fetcher Fetcher, pageCache *cache.Cache, cfg Config, log *zap.Logger) *Crawler {
	if cfg.PageBudget <= 0 {
		cfg.PageBudget = DefaultPageBudget
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{
		fetcher: fetcher,
		cache:   pageCache,
		budget:  cfg.PageBudget,
		ttl:     cfg.CacheTTL,
		log:     log,
	}
}

// Result aggregates one crawl. Pages holds only successful fetches in
// fixed priority order (home page first); Attempts records every
// outcome, success or failure.
type Result struct {
	Pages    []domain.PageResult
	Attempts []domain.PageAttempt
}

// Crawl fetches up to budget pages of the site rooted at rootURL.
// A budget <= 0 uses the configured default. Individual page failures
// do not abort the crawl; a root page that fails the whole retry
// ladder returns ErrUnreachable with an empty page list.
func (c *Crawler) Crawl(ctx context.Context, rootURL string, budget int) (*Result, error) {
	if budget <= 0 {
		budget = c.budget
	}

	root, err := NormalizeURL(rootURL)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}

	res := &Result{}
	rootPage, rootCached := c.cachedFetch(ctx, root)
	res.Attempts = append(res.Attempts, attemptOf(rootPage, rootCached))

	if rootPage.Status != domain.StatusOK {
		c.log.Warn("root page unreachable",
			zap.String("url", root),
			zap.String("status", string(rootPage.Status)),
			zap.Int("http_status", rootPage.HTTPStatus))
		return res, fmt.Errorf("crawl %s: %w", root, domain.ErrUnreachable)
	}
	res.Pages = append(res.Pages, rootPage)

	candidates := candidateLinks(root, rootPage.Body, budget-1)
	if len(candidates) == 0 {
		return res, nil
	}

	// Fetch candidates concurrently up to the page budget; results are
	// reassembled in candidate-priority order so extraction tie-breaks
	// stay deterministic.
	type outcome struct {
		page   domain.PageResult
		cached bool
	}
	outcomes := make([]outcome, len(candidates))
	sem := make(chan struct{}, budget)
	var wg sync.WaitGroup

	for i, link := range candidates {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				outcomes[idx] = outcome{page: domain.PageResult{URL: url, Status: domain.StatusConnError}}
				return
			}
			page, cached := c.cachedFetch(ctx, url)
			outcomes[idx] = outcome{page: page, cached: cached}
		}(i, link)
	}
	wg.Wait()

	for _, o := range outcomes {
		res.Attempts = append(res.Attempts, attemptOf(o.page, o.cached))
		if o.page.Status == domain.StatusOK {
			res.Pages = append(res.Pages, o.page)
		}
	}

	c.log.Info("crawl finished",
		zap.String("root", root),
		zap.Int("pages_ok", len(res.Pages)),
		zap.Int("pages_tried", len(res.Attempts)))
	return res, nil
}

// cachedFetch checks the cache before hitting the network and stores
// successful results with the configured TTL.
func (c *Crawler) cachedFetch(ctx context.Context, url string) (domain.PageResult, bool) {
	if c.cache != nil {
		if hit, ok := c.cache.Get(url); ok {
			return hit, true
		}
	}
	page := c.fetcher.Fetch(ctx, url)
	if c.cache != nil && page.Status == domain.StatusOK {
		c.cache.Put(url, page, c.ttl)
	}
	return page, false
}

func attemptOf(p domain.PageResult, cached bool) domain.PageAttempt {
	return domain.PageAttempt{
		URL:        p.URL,
		Status:     p.Status,
		HTTPStatus: p.HTTPStatus,
		Cached:     cached,
	}
}

// candidateLinks extracts same-host links from the root page whose
// path or anchor text matches the vocabulary, ordered by vocabulary
// priority and capped at limit.
func candidateLinks(rootURL, body string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}

	type scored struct {
		url   string
		score int
		order int
	}
	var found []scored
	seen := map[string]bool{rootURL: true}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !sameHost(abs.Host, base.Host) {
			return
		}

		normalized, err := NormalizeURL(abs.String())
		if err != nil || seen[normalized] {
			return
		}

		score := vocabScore(strings.ToLower(abs.Path), strings.ToLower(strings.TrimSpace(sel.Text())))
		if score < 0 {
			return
		}
		seen[normalized] = true
		found = append(found, scored{url: normalized, score: score, order: len(found)})
	})

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score < found[j].score
		}
		return found[i].order < found[j].order
	})

	if len(found) > limit {
		found = found[:limit]
	}
	links := make([]string, len(found))
	for i, f := range found {
		links[i] = f.url
	}
	return links
}

// vocabScore returns the priority of the first vocabulary word found
// in the path or anchor text, or -1 when none matches.
func vocabScore(path, anchor string) int {
	for i, word := range candidateVocab {
		if strings.Contains(path, word) || strings.Contains(anchor, word) {
			return i
		}
	}
	return -1
}
