package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"duunihaku/common/cache"
	"duunihaku/common/telemetry"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = telemetry.GetTracer("duunihaku/services/search/sources")

// Source is one upstream job board.
type Source interface {
	Name() string
	Search(ctx context.Context, query models.Query) ([]models.Listing, error)
}

type Options struct {
	Timeout  time.Duration
	Rate     float64
	Burst    int
	CacheTTL time.Duration
}

// decodeFunc turns a 200 response into listings.
type decodeFunc func(resp *http.Response) ([]models.Listing, error)

type sourceClient struct {
	name     string
	client   *http.Client
	limiter  *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func newSourceClient(name string, opts Options, c cache.Cache, logger *zap.Logger) *sourceClient {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &sourceClient{
		name: name,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:  rate.NewLimiter(limit, burst),
		cache:    c,
		cacheTTL: opts.CacheTTL,
		logger:   logger.With(zap.String("source", name)),
	}
}

func (c *sourceClient) cacheEnabled() bool {
	return c.cache != nil && c.cacheTTL > 0
}

func (c *sourceClient) get(ctx context.Context, url string, decode decodeFunc) ([]models.Listing, error) {
	ctx, span := tracer.Start(ctx, c.name+".get")
	defer span.End()
	span.SetAttributes(telemetry.String("http.url", url))

	cacheKey := fmt.Sprintf("src:%s:%s", c.name, url)
	if c.cacheEnabled() {
		var cached models.SourcePage
		err := c.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			span.SetAttributes(telemetry.String("cache.result", "hit"))
			c.logger.Debug("cache hit", zap.String("url", url))
			return cached.Listings, nil
		} else if err != cache.ErrNotFound {
			span.SetAttributes(telemetry.String("cache.result", "error"))
			span.RecordError(err)
			c.logger.Warn("cache error", zap.Error(err))
		} else {
			span.SetAttributes(telemetry.String("cache.result", "miss"))
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, errors.RateLimit("waiting for rate limiter", err)
	}

	c.logger.Info("fetching", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Internal("creating request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("request failed", zap.String("url", url), zap.Error(err))
		return nil, errors.Unavailable("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(
		telemetry.Int("http.status_code", resp.StatusCode),
		telemetry.String("http.method", http.MethodGet),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("rate limited by upstream", zap.String("url", url))
		return nil, errors.RateLimit("upstream rate limit", nil)
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("unexpected status code", zap.Int("status_code", resp.StatusCode))
		return nil, errors.Unavailable(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	listings, err := decode(resp)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("failed to decode response", zap.Error(err))
		return nil, errors.Internal("decoding response", err)
	}

	span.SetAttributes(telemetry.Int("listings.count", len(listings)))
	c.logger.Debug("fetched listings", zap.Int("count", len(listings)))

	if c.cacheEnabled() {
		if err := c.cache.Set(ctx, cacheKey, models.SourcePage{Listings: listings}, c.cacheTTL); err != nil {
			c.logger.Warn("failed to cache listings", zap.Error(err))
		}
	}

	return listings, nil
}
