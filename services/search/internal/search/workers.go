package search

import (
	"context"
	"sync"

	"duunihaku/services/search/internal/models"
	"duunihaku/services/search/internal/sources"

	"go.uber.org/zap"
)

type sourceResult struct {
	source   string
	listings []models.Listing
	err      error
}

// fanOut queries every source concurrently. Results are indexed like
// srcs, so merge order does not depend on which source answers first.
func fanOut(ctx context.Context, srcs []sources.Source, query models.Query, logger *zap.Logger) []sourceResult {
	results := make([]sourceResult, len(srcs))

	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			listings, err := src.Search(ctx, query)
			if err != nil {
				logger.Warn("source search failed",
					zap.String("source", src.Name()),
					zap.Int("page", query.Page),
					zap.Error(err))
			}
			results[i] = sourceResult{source: src.Name(), listings: listings, err: err}
		}(i, src)
	}
	wg.Wait()

	return results
}
