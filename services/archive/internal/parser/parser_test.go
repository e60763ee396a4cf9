package parser

import (
	"errors"
	"testing"
	"time"
)

func TestParseListingsEvent(t *testing.T) {
	data := []byte(`{
		"query": {"haku": " kuljettaja ", "alue": "Helsinki", "page": 2},
		"fetched_at": "2026-03-01T10:15:30.5+02:00",
		"listings": [
			{"title": "Kuljettaja\n  C-kortti", "company": "Acme", "city": "Helsinki", "source": "Työmarkkinatori", "link": " https://x/1 "},
			{"title": "No link", "company": "X", "city": "Y", "source": "Duunitori", "link": ""}
		]
	}`)

	records, err := ParseListingsEvent(data, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.Title != "Kuljettaja C-kortti" || r.Link != "https://x/1" || r.QueryHaku != "kuljettaja" || r.QueryPage != 2 {
		t.Errorf("record = %+v", r)
	}
	if want := time.Date(2026, 3, 1, 8, 15, 30, 0, time.UTC); !r.FetchedAt.Equal(want) {
		t.Errorf("FetchedAt = %v, want %v", r.FetchedAt, want)
	}
	if r.ID != ListingID("Työmarkkinatori", "https://x/1") {
		t.Errorf("ID = %s", r.ID)
	}
}

func TestListingIDStable(t *testing.T) {
	a := ListingID("Duunitori", "https://x/1")
	if a != ListingID("Duunitori", "https://x/1") {
		t.Error("same input gave different ids")
	}
	if a == ListingID("Työmarkkinatori", "https://x/1") || a == ListingID("Duunitori", "https://x/2") {
		t.Error("different inputs share an id")
	}
}

func TestParseListingsEventErrors(t *testing.T) {
	if _, err := ParseListingsEvent([]byte(`{"listings":[]}`), time.Now()); !errors.Is(err, ErrEmptyEvent) {
		t.Errorf("empty event: got %v", err)
	}
	if _, err := ParseListingsEvent([]byte(`not json`), time.Now()); err == nil {
		t.Error("malformed event: expected error")
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records, err := ParseListingsEvent([]byte(`{"listings":[{"link":"https://x"}]}`), now)
	if err != nil {
		t.Fatal(err)
	}
	if !records[0].FetchedAt.Equal(now) {
		t.Errorf("missing fetched_at should default to now, got %v", records[0].FetchedAt)
	}
}
