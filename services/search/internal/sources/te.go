package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"duunihaku/common/cache"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"

	"go.uber.org/zap"
)

// TE is the Työmarkkinatori (TE-palvelut) search API.
type TE struct {
	baseURL string
	client  *sourceClient
}

func NewTE(baseURL string, opts Options, c cache.Cache, logger *zap.Logger) *TE {
	return &TE{
		baseURL: baseURL,
		client:  newSourceClient(models.SourceTE, opts, c, logger),
	}
}

func (t *TE) Name() string {
	return models.SourceTE
}

func (t *TE) Search(ctx context.Context, query models.Query) ([]models.Listing, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return nil, errors.Internal("parsing TE api url", err)
	}
	params := u.Query()
	params.Set("q", query.Haku)
	params.Set("location", query.Alue)
	params.Set("page", strconv.Itoa(query.Page))
	u.RawQuery = params.Encode()

	return t.client.get(ctx, u.String(), decodeTE)
}

func decodeTE(resp *http.Response) ([]models.Listing, error) {
	var body models.TEResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	listings := make([]models.Listing, 0, len(body.Jobs))
	for _, item := range body.Jobs {
		listings = append(listings, item.ToListing())
	}
	return listings, nil
}
