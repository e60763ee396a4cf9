package loadmore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"duunihaku/common/telemetry"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("duunihaku/services/search/loadmore")

const Endpoint = "/load_more"

// Fetcher loads one page of results for the given filters.
type Fetcher interface {
	FetchPage(ctx context.Context, filters Filters, page int) (*models.ListingPage, error)
}

type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
	logger *zap.Logger
}

// NewHTTPFetcher resolves Endpoint against pageURL, the address of the
// page the control lives on. The client's timeout is the only timeout
// applied to a page load.
func NewHTTPFetcher(pageURL string, client *http.Client, logger *zap.Logger) (*HTTPFetcher, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.InvalidInput("parsing page url", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{base: base, client: client, logger: logger}, nil
}

// RequestURL builds the load-more URL. Parameters keep the order
// haku, alue, page.
func (f *HTTPFetcher) RequestURL(filters Filters, page int) string {
	rawQuery := "haku=" + url.QueryEscape(filters.Haku) +
		"&alue=" + url.QueryEscape(filters.Alue) +
		"&page=" + strconv.Itoa(page)
	return f.base.ResolveReference(&url.URL{Path: Endpoint, RawQuery: rawQuery}).String()
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, filters Filters, page int) (*models.ListingPage, error) {
	ctx, span := tracer.Start(ctx, "HTTPFetcher.FetchPage")
	defer span.End()

	reqURL := f.RequestURL(filters, page)
	span.SetAttributes(
		telemetry.String("http.url", reqURL),
		telemetry.Int("loadmore.page", page),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Internal("creating request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Unavailable("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(telemetry.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Unavailable(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Unavailable("reading response", err)
	}

	result, err := DecodePage(body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		telemetry.Int("loadmore.jobs", len(result.Jobs)),
		telemetry.Bool("loadmore.has_next", result.HasNext),
	)
	return result, nil
}

// DecodePage parses a load-more response body. The body must be a JSON
// object; a missing "jobs" is an empty page and a missing "has_next" is
// false.
func DecodePage(body []byte) (*models.ListingPage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.InvalidInput("response is not a JSON object", nil)
	}

	var result models.ListingPage
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, errors.InvalidInput("decoding response", err)
	}
	return &result, nil
}
