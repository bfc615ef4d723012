/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package search orchestrates query compilation, source fan-out, post
// filtering, and result caching.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/bragi/internal/cache"
	"github.com/friendsincode/bragi/internal/match"
	"github.com/friendsincode/bragi/internal/models"
	"github.com/friendsincode/bragi/internal/query"
	"github.com/friendsincode/bragi/internal/telemetry"
)

// cacheKeyPrefix namespaces search result cache keys.
const cacheKeyPrefix = "bragi:search:"

// DefaultLimit caps per-source results when a request does not set one.
const DefaultLimit = 50

// Source is a platform adapter that returns raw candidate tracks for a base
// query. Implementations may fail or return nothing; the orchestrator treats
// a failure as an empty result set for that source.
type Source interface {
	Name() string
	Search(ctx context.Context, baseQuery string, limit int) ([]models.Track, error)
}

// Request describes one search invocation.
type Request struct {
	Query string
	Mode  string // UI search mode, part of the cache key
	Limit int
}

// Response is the orchestrator's result.
type Response struct {
	Tracks    []models.Track `json:"tracks"`
	FromCache bool           `json:"from_cache"`
	Errors    []string       `json:"errors,omitempty"` // query syntax problems
}

// Service coordinates sources, matcher, and cache.
type Service struct {
	sources []Source
	cache   *cache.Cache[[]models.Track]
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

// New creates a search service. metrics may be nil.
func New(sources []Source, resultCache *cache.Cache[[]models.Track], metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		sources: sources,
		cache:   resultCache,
		metrics: metrics,
		logger:  logger.With().Str("component", "search").Logger(),
	}
}

// Search runs one query end to end. A query with syntax errors returns an
// empty result set without touching any source: a query that cannot be
// post-filtered correctly is not worth a network round-trip.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	started := time.Now()
	searchID := uuid.NewString()
	logger := s.logger.With().Str("search_id", searchID).Str("query", req.Query).Logger()

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Mode == "" {
		req.Mode = "tracks"
	}

	pq := query.Parse(req.Query)
	if len(pq.Errors) > 0 {
		logger.Debug().Strs("errors", pq.Errors).Msg("query has syntax errors, skipping sources")
		s.observe(req.Mode, telemetry.OutcomeInvalid, started)
		return Response{Errors: pq.Errors}, nil
	}

	key := cacheKey(req)
	if s.cache != nil {
		if tracks, ok := s.cache.Get(key); ok {
			logger.Debug().Int("count", len(tracks)).Msg("search cache hit")
			s.observe(req.Mode, telemetry.OutcomeHit, started)
			return Response{Tracks: tracks, FromCache: true}, nil
		}
	}

	base := BaseQuery(pq)
	candidates, err := s.gather(ctx, logger, base, req.Limit)
	if err != nil {
		return Response{}, err
	}

	// Plain-term queries were already satisfied by the sources' own
	// matching; only advanced syntax needs the post-filter.
	tracks := candidates
	if pq.HasOperators || pq.HasFields || pq.HasQuotes || pq.HasGrouping {
		tracks = match.Filter(candidates, pq)
	}
	if len(tracks) > req.Limit {
		tracks = tracks[:req.Limit]
	}

	if s.cache != nil {
		s.cache.Set(key, tracks)
	}

	logger.Debug().Int("candidates", len(candidates)).Int("results", len(tracks)).Msg("search complete")
	s.observe(req.Mode, telemetry.OutcomeMiss, started)
	return Response{Tracks: tracks}, nil
}

// gather fans out to every source concurrently. Source order is preserved in
// the merged output; a failing source contributes nothing.
func (s *Service) gather(ctx context.Context, logger zerolog.Logger, base string, limit int) ([]models.Track, error) {
	results := make([][]models.Track, len(s.sources))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		i, src := i, src
		group.Go(func() error {
			tracks, err := src.Search(groupCtx, base, limit)
			if err != nil {
				logger.Warn().Err(err).Str("source", src.Name()).Msg("source search failed, treating as empty")
				if s.metrics != nil {
					s.metrics.SourceErrors.WithLabelValues(src.Name()).Inc()
				}
				return nil
			}
			results[i] = tracks
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("gather sources: %w", err)
	}

	var merged []models.Track
	for _, tracks := range results {
		merged = append(merged, tracks...)
	}
	return merged, nil
}

// BaseQuery reduces a parsed query to the plain text handed to sources:
// bare terms, quoted phrases, and textual field values. Operators, grouping,
// and ordinal constraints only exist for the post-filter.
func BaseQuery(pq query.ParsedQuery) string {
	var parts []string
	for _, tok := range pq.Tokens {
		switch tok.Kind {
		case query.TokenTerm, query.TokenQuoted:
			parts = append(parts, tok.Text)
		case query.TokenField:
			if !tok.Field.Ordinal() {
				parts = append(parts, tok.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s%s:%d:%s", cacheKeyPrefix, req.Mode, req.Limit, req.Query)
}

func (s *Service) observe(mode, outcome string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchRequests.WithLabelValues(mode, outcome).Inc()
	s.metrics.SearchDuration.Observe(time.Since(started).Seconds())
}
