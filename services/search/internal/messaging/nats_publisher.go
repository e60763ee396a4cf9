package messaging

import (
	"context"
	"encoding/json"
	"time"

	"duunihaku/common/telemetry"
	"duunihaku/services/search/internal/config"
	"duunihaku/services/search/internal/errors"
	"duunihaku/services/search/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("duunihaku/services/search/messaging")

const (
	ListingsFetchedSubject = "listings.fetched"
)

type Publisher interface {
	PublishListings(ctx context.Context, event *models.ListingsFetchedEvent) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewPublisher connects to NATS. Without a configured NATS URL events are
// dropped by a no-op publisher.
func NewPublisher(logger *zap.Logger, config *config.Config) (Publisher, error) {
	if config.NATSURL == "" {
		logger.Info("NATS_URL not set, listing events will not be published")
		return NopPublisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("search-service"),
		nats.Timeout(config.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *natsPublisher) PublishListings(ctx context.Context, event *models.ListingsFetchedEvent) error {
	_, span := tracer.Start(ctx, "PublishListings")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling listings event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", ListingsFetchedSubject),
		telemetry.Int("message.size", len(data)),
		telemetry.Int("listings.count", len(event.Listings)),
	)

	if err := p.conn.Publish(ListingsFetchedSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish listings",
			zap.Int("page", event.Query.Page),
			zap.Error(err))
		return errors.Unavailable("publishing to NATS", err)
	}

	p.logger.Debug("published listings",
		zap.Int("page", event.Query.Page),
		zap.Int("count", len(event.Listings)),
		zap.String("subject", ListingsFetchedSubject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

type NopPublisher struct{}

func (NopPublisher) PublishListings(context.Context, *models.ListingsFetchedEvent) error { return nil }

func (NopPublisher) Close() {}
