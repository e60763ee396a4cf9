package events

import (
	"context"
	"fmt"

	"duunihaku/services/archive/internal/config"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const ListingsFetchedSubject = "listings.fetched"

type ListingsProcessor interface {
	ProcessListingsEvent(ctx context.Context, data []byte) error
}

type Handler struct {
	logger    *zap.Logger
	nc        *nats.Conn
	tracer    trace.Tracer
	processor ListingsProcessor
	queue     string
	sub       *nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, tracer trace.Tracer, processor ListingsProcessor, cfg *config.Config) *Handler {
	return &Handler{
		logger:    logger,
		nc:        nc,
		tracer:    tracer,
		processor: processor,
		queue:     cfg.NATSQueue,
	}
}

// RegisterSubscriptions subscribes once the app starts, after any
// earlier start hooks such as migrations have run.
func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sub, err := h.nc.QueueSubscribe(ListingsFetchedSubject, h.queue, h.handleMsg)
			if err != nil {
				return fmt.Errorf("subscribe to %s: %w", ListingsFetchedSubject, err)
			}
			h.sub = sub
			h.logger.Info("Registered NATS subscriptions",
				zap.String("subject", ListingsFetchedSubject),
				zap.String("queue", h.queue))
			return nil
		},
		OnStop: func(context.Context) error {
			if h.sub == nil {
				return nil
			}
			return h.sub.Drain()
		},
	})
}

func (h *Handler) handleMsg(msg *nats.Msg) {
	h.Handle(context.Background(), msg.Subject, msg.Data)
}

// Handle processes one message body. Failures are logged and dropped.
func (h *Handler) Handle(ctx context.Context, subject string, data []byte) {
	ctx, span := h.tracer.Start(ctx, "handleListingsFetched")
	defer span.End()

	if err := h.processor.ProcessListingsEvent(ctx, data); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to archive listings",
			zap.Error(err),
			zap.String("subject", subject),
		)
		return
	}

	h.logger.Debug("Archived listings event",
		zap.String("subject", subject),
		zap.Int("bytes", len(data)),
	)
}
