package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duunihaku/common/telemetry"
	"duunihaku/services/archive/internal/config"
	"duunihaku/services/archive/internal/models"
	"duunihaku/services/archive/internal/parser"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ListingProcessor struct {
	logger *zap.Logger
	store  ListingStore
	tracer trace.Tracer
	config *config.Config
	now    func() time.Time
}

func NewListingProcessor(logger *zap.Logger, store ListingStore, config *config.Config) *ListingProcessor {
	return &ListingProcessor{
		logger: logger,
		store:  store,
		tracer: telemetry.GetTracer("duunihaku/services/archive/processor"),
		config: config,
		now:    time.Now,
	}
}

// ProcessListingsEvent stores the listings of one event. Events without
// listings are ignored.
func (p *ListingProcessor) ProcessListingsEvent(ctx context.Context, rawData []byte) error {
	ctx, span := p.tracer.Start(ctx, "ProcessListingsEvent")
	defer span.End()

	records, err := parser.ParseListingsEvent(rawData, p.now())
	if errors.Is(err, parser.ErrEmptyEvent) {
		p.logger.Debug("skipping event without listings")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		p.logger.Error("Failed to parse listings event", zap.Error(err))
		return fmt.Errorf("parse listings event: %w", err)
	}
	span.SetAttributes(telemetry.Int("listings.count", len(records)))

	for start := 0; start < len(records); start += p.batchSize() {
		end := min(start+p.batchSize(), len(records))
		if err := p.storeListings(ctx, records[start:end]); err != nil {
			span.RecordError(err)
			p.logger.Error("Failed to store listings", zap.Error(err))
			return fmt.Errorf("store listings: %w", err)
		}
	}

	p.logger.Debug("stored listings", zap.Int("count", len(records)))
	return nil
}

func (p *ListingProcessor) batchSize() int {
	if p.config == nil || p.config.BatchSize <= 0 {
		return 100
	}
	return p.config.BatchSize
}

func (p *ListingProcessor) storeListings(ctx context.Context, records []models.ListingRecord) error {
	if p.config != nil && p.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProcessingTimeout)
		defer cancel()
	}
	return p.store.InsertListings(ctx, records)
}
