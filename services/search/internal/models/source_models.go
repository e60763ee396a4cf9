package models

import "encoding/json"

const (
	SourceDuunitori = "Duunitori"
	SourceTE        = "Työmarkkinatori"
)

type DuunitoriItem struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

func (i DuunitoriItem) ToListing() Listing {
	return Listing{
		Title:   i.Title,
		Company: i.Company,
		City:    i.Location,
		Link:    i.URL,
		Source:  SourceDuunitori,
	}
}

type TEItem struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	City    string `json:"city"`
	URL     string `json:"url"`
}

func (i TEItem) ToListing() Listing {
	return Listing{
		Title:   i.Title,
		Company: i.Company,
		City:    i.City,
		Link:    i.URL,
		Source:  SourceTE,
	}
}

type TEResponse struct {
	Jobs []TEItem `json:"jobs"`
}

// SourcePage is the cached form of one upstream page.
type SourcePage struct {
	Listings []Listing `json:"listings"`
}

func (p SourcePage) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

func (p *SourcePage) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}
