package search

import (
	"context"
	"strings"
	"time"

	"duunihaku/common/telemetry"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/messaging"
	"duunihaku/services/search/internal/models"
	"duunihaku/services/search/internal/sources"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("duunihaku/services/search/search")

type Searcher struct {
	sources   []sources.Source
	publisher messaging.Publisher
	pageSize  int
	logger    *zap.Logger
	now       func() time.Time
}

// NewSearcher queries srcs in the given order. pageSize is the number of
// listings a source returns for a full page.
func NewSearcher(srcs []sources.Source, publisher messaging.Publisher, pageSize int, logger *zap.Logger) *Searcher {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Searcher{
		sources:   srcs,
		publisher: publisher,
		pageSize:  pageSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Search returns one merged page. A failing source is skipped; the search
// fails only when every source fails.
func (s *Searcher) Search(ctx context.Context, query models.Query) (*models.ListingPage, error) {
	ctx, span := tracer.Start(ctx, "Searcher.Search")
	defer span.End()

	if query.Page < 1 {
		return nil, errors.InvalidInput("page must be a positive integer", nil)
	}
	span.SetAttributes(
		telemetry.String("search.haku", query.Haku),
		telemetry.String("search.alue", query.Alue),
		telemetry.Int("search.page", query.Page),
	)

	results := fanOut(ctx, s.sources, query, s.logger)

	var (
		merged  []models.Listing
		hasNext bool
		lastErr error
		failed  int
	)
	for _, r := range results {
		if r.err != nil {
			failed++
			lastErr = r.err
			continue
		}
		if s.pageSize > 0 && len(r.listings) >= s.pageSize {
			hasNext = true
		}
		merged = append(merged, r.listings...)
	}

	if len(results) > 0 && failed == len(results) {
		span.RecordError(lastErr)
		return nil, errors.Unavailable("all job sources failed", lastErr)
	}

	jobs := FilterByCity(merged, query.Alue)
	s.logger.Info("search completed",
		zap.String("haku", query.Haku),
		zap.String("alue", query.Alue),
		zap.Int("page", query.Page),
		zap.Int("fetched", len(merged)),
		zap.Int("after_city_filter", len(jobs)),
		zap.Bool("has_next", hasNext),
		zap.Int("failed_sources", failed))
	span.SetAttributes(
		telemetry.Int("search.results", len(jobs)),
		telemetry.Bool("search.has_next", hasNext),
	)

	if len(jobs) > 0 {
		event := &models.ListingsFetchedEvent{
			Query:     query,
			FetchedAt: s.now().UTC(),
			Listings:  jobs,
		}
		if err := s.publisher.PublishListings(ctx, event); err != nil {
			s.logger.Warn("failed to publish listings event", zap.Error(err))
		}
	}

	return &models.ListingPage{Jobs: jobs, HasNext: hasNext}, nil
}

// FilterByCity keeps listings whose city contains city, case-insensitively.
// An empty city keeps everything.
func FilterByCity(listings []models.Listing, city string) []models.Listing {
	filtered := make([]models.Listing, 0, len(listings))
	if city == "" {
		return append(filtered, listings...)
	}

	needle := strings.ToLower(city)
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.City), needle) {
			filtered = append(filtered, l)
		}
	}
	return filtered
}
