package models

import (
	"time"
)

// ListingRecord is one row of the listings table.
type ListingRecord struct {
	ID        string
	Title     string
	Company   string
	City      string
	Source    string
	Link      string
	QueryHaku string
	QueryAlue string
	QueryPage int32
	FetchedAt time.Time
}
