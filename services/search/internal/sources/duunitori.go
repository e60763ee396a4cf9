package sources

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"duunihaku/common/cache"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"

	"go.uber.org/zap"
)

type Duunitori struct {
	baseURL string
	client  *sourceClient
}

func NewDuunitori(baseURL string, opts Options, c cache.Cache, logger *zap.Logger) *Duunitori {
	return &Duunitori{
		baseURL: baseURL,
		client:  newSourceClient(models.SourceDuunitori, opts, c, logger),
	}
}

func (d *Duunitori) Name() string {
	return models.SourceDuunitori
}

func (d *Duunitori) Search(ctx context.Context, query models.Query) ([]models.Listing, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, errors.Internal("parsing duunitori url", err)
	}
	params := u.Query()
	params.Set("haku", query.Haku)
	params.Set("alue", query.Alue)
	params.Set("sivu", strconv.Itoa(query.Page))
	u.RawQuery = params.Encode()

	return d.client.get(ctx, u.String(), decodeDuunitori)
}

// decodeDuunitori reads a JSON array of items. Duunitori answers non-API
// clients with HTML; such a response is an empty page, not an error.
func decodeDuunitori(resp *http.Response) ([]models.Listing, error) {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return []models.Listing{}, nil
	}

	var items []models.DuunitoriItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}

	listings := make([]models.Listing, 0, len(items))
	for _, item := range items {
		listings = append(listings, item.ToListing())
	}
	return listings, nil
}
