package models

import (
	"encoding/json"
	"time"
)

// Listing is one job search result as served by /load_more. All fields are
// untrusted upstream text.
type Listing struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	City    string `json:"city"`
	Source  string `json:"source"`
	Link    string `json:"link"`
}

type ListingPage struct {
	Jobs    []Listing `json:"jobs"`
	HasNext bool      `json:"has_next"`
}

// UnmarshalJSON treats a missing or null "jobs" as an empty page. "has_next"
// follows JavaScript truthiness: false, 0, "" and null are false, any other
// value is true.
func (p *ListingPage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Jobs    []Listing       `json:"jobs"`
		HasNext json.RawMessage `json:"has_next"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	hasNext, err := truthy(raw.HasNext)
	if err != nil {
		return err
	}
	if raw.Jobs == nil {
		raw.Jobs = []Listing{}
	}
	*p = ListingPage{Jobs: raw.Jobs, HasNext: hasNext}
	return nil
}

func truthy(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch v := v.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		return v != "", nil
	default:
		return true, nil
	}
}

type Query struct {
	Haku string `json:"haku"`
	Alue string `json:"alue"`
	Page int    `json:"page"`
}

type ListingsFetchedEvent struct {
	Query     Query     `json:"query"`
	FetchedAt time.Time `json:"fetched_at"`
	Listings  []Listing `json:"listings"`
}
