package processor

import (
	"context"
	"fmt"

	"duunihaku/services/archive/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ListingStore interface {
	InsertListings(ctx context.Context, records []models.ListingRecord) error
}

type clickhouseStore struct {
	conn clickhouse.Conn
}

func NewClickHouseStore(conn clickhouse.Conn) ListingStore {
	return &clickhouseStore{conn: conn}
}

func (s *clickhouseStore) InsertListings(ctx context.Context, records []models.ListingRecord) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO listings (
			id, title, company, city, source, link,
			query_haku, query_alue, query_page, fetched_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare listings batch: %w", err)
	}

	for _, r := range records {
		if err := batch.Append(
			r.ID,
			r.Title,
			r.Company,
			r.City,
			r.Source,
			r.Link,
			r.QueryHaku,
			r.QueryAlue,
			r.QueryPage,
			r.FetchedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append listing %s: %w", r.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send listings batch: %w", err)
	}
	return nil
}
