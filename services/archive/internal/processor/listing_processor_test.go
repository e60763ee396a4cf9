package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"duunihaku/services/archive/internal/config"
	"duunihaku/services/archive/internal/models"

	"go.uber.org/zap/zaptest"
)

type memoryStore struct {
	batches [][]models.ListingRecord
	err     error
}

func (m *memoryStore) InsertListings(_ context.Context, records []models.ListingRecord) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, append([]models.ListingRecord(nil), records...))
	return nil
}

func eventWithListings(n int) []byte {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"title":"t%d","source":"Duunitori","link":"https://x/%d"}`, i, i)
	}
	return []byte(`{"query":{"page":1},"listings":[` + strings.Join(items, ",") + `]}`)
}

func TestProcessListingsEventBatches(t *testing.T) {
	store := &memoryStore{}
	p := NewListingProcessor(zaptest.NewLogger(t), store, &config.Config{BatchSize: 2})

	if err := p.ProcessListingsEvent(context.Background(), eventWithListings(5)); err != nil {
		t.Fatal(err)
	}
	if len(store.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(store.batches))
	}
	total := 0
	for _, b := range store.batches {
		total += len(b)
	}
	if total != 5 {
		t.Errorf("stored %d records, want 5", total)
	}
}

func TestProcessListingsEventSkipsEmpty(t *testing.T) {
	store := &memoryStore{}
	p := NewListingProcessor(zaptest.NewLogger(t), store, &config.Config{})

	if err := p.ProcessListingsEvent(context.Background(), []byte(`{"listings":[]}`)); err != nil {
		t.Fatal(err)
	}
	if len(store.batches) != 0 {
		t.Errorf("empty event stored %d batches", len(store.batches))
	}
}

func TestProcessListingsEventErrors(t *testing.T) {
	p := NewListingProcessor(zaptest.NewLogger(t), &memoryStore{}, &config.Config{})
	if err := p.ProcessListingsEvent(context.Background(), []byte(`{`)); err == nil {
		t.Error("malformed event: expected error")
	}

	storeErr := errors.New("clickhouse down")
	p = NewListingProcessor(zaptest.NewLogger(t), &memoryStore{err: storeErr}, &config.Config{})
	if err := p.ProcessListingsEvent(context.Background(), eventWithListings(1)); !errors.Is(err, storeErr) {
		t.Errorf("store failure: got %v", err)
	}
}
