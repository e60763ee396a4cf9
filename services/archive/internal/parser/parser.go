package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"duunihaku/services/archive/internal/models"

	"github.com/google/uuid"
)

// RawListingsEvent mirrors the search service's listings.fetched payload.
type RawListingsEvent struct {
	Query struct {
		Haku string `json:"haku"`
		Alue string `json:"alue"`
		Page int    `json:"page"`
	} `json:"query"`
	FetchedAt time.Time    `json:"fetched_at"`
	Listings  []RawListing `json:"listings"`
}

type RawListing struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	City    string `json:"city"`
	Source  string `json:"source"`
	Link    string `json:"link"`
}

var ErrEmptyEvent = errors.New("event has no listings")

// listingNamespace scopes listing ids; the same source and link always map
// to the same id so re-fetched listings replace earlier rows.
var listingNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

func ListingID(source, link string) string {
	return uuid.NewSHA1(listingNamespace, []byte(source+"\x00"+link)).String()
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseListingsEvent decodes an event into rows. Listings without a link
// cannot be identified and are skipped.
func ParseListingsEvent(data []byte, now time.Time) ([]models.ListingRecord, error) {
	var raw RawListingsEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode listings event: %w", err)
	}
	if len(raw.Listings) == 0 {
		return nil, ErrEmptyEvent
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = now
	}
	fetchedAt = fetchedAt.UTC().Truncate(time.Second)

	records := make([]models.ListingRecord, 0, len(raw.Listings))
	for _, l := range raw.Listings {
		link := strings.TrimSpace(l.Link)
		if link == "" {
			continue
		}
		source := normalizeText(l.Source)
		records = append(records, models.ListingRecord{
			ID:        ListingID(source, link),
			Title:     normalizeText(l.Title),
			Company:   normalizeText(l.Company),
			City:      normalizeText(l.City),
			Source:    source,
			Link:      link,
			QueryHaku: normalizeText(raw.Query.Haku),
			QueryAlue: normalizeText(raw.Query.Alue),
			QueryPage: int32(raw.Query.Page),
			FetchedAt: fetchedAt,
		})
	}
	return records, nil
}
