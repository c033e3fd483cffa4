// Package pipeline orchestrates website analysis.
//
// Phases:
//  1. Validation: reject malformed URLs before any network activity
//  2. Crawl: bounded same-site page set, cache-checked per page
//  3. Extract: heuristic field extraction over the ordered pages
//
// A root page that fails the whole retry ladder surfaces as
// ErrUnreachable; the extractor is never invoked in that case.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/socialcap/profile-api/internal/crawl"
	"github.com/socialcap/profile-api/internal/domain"
	"github.com/socialcap/profile-api/internal/extract"
)

// Crawler is the page-gathering dependency. Satisfied by crawl.Crawler.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string, budget int) (*crawl.Result, error)
}

// Config holds injectable dependencies.
type Config struct {
	Crawler Crawler
	Log     *zap.Logger
}

// Analyze runs the full pipeline for one root URL and returns the
// draft for user review. The attempt log rides along so the caller can
// show which pages contributed.
func Analyze(ctx context.Context, req domain.AnalyzeRequest, cfg Config) (*domain.AnalyzeResponse, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	rootURL, err := crawl.NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	result, err := cfg.Crawler.Crawl(ctx, rootURL, req.PageBudget)
	if err != nil {
		if errors.Is(err, domain.ErrUnreachable) {
			log.Warn("site unreachable", zap.String("url", rootURL))
			return &domain.AnalyzeResponse{
				Attempts:   result.Attempts,
				StartedAt:  start,
				DurationMs: time.Since(start).Milliseconds(),
			}, err
		}
		return nil, err
	}

	draft := extract.Extract(result.Pages)
	if draft.SourceURL == "" {
		draft.SourceURL = rootURL
	}

	log.Info("analysis finished",
		zap.String("url", rootURL),
		zap.Int("pages_used", len(draft.PagesUsed)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return &domain.AnalyzeResponse{
		Draft:      draft,
		Attempts:   result.Attempts,
		StartedAt:  start,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
