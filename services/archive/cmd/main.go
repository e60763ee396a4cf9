package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"duunihaku/common/database"
	"duunihaku/common/database/schema"
	"duunihaku/common/database/schema/migrations"
	"duunihaku/common/telemetry"
	"duunihaku/services/archive/internal/config"
	"duunihaku/services/archive/internal/events"
	"duunihaku/services/archive/internal/processor"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

func newNATSConnection(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("archive-service"),
		nats.RetryOnFailedConnect(true),
	}
	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			nc.Close()
			return nil
		},
	})
	return nc, nil
}

func newClickHouseConnection(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (clickhouse.Conn, error) {
	db, err := database.New(context.Background(), database.Options{
		DSN:             cfg.ClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db.Conn(), nil
}

func newListingProcessor(logger *zap.Logger, conn clickhouse.Conn, cfg *config.Config) events.ListingsProcessor {
	return processor.NewListingProcessor(logger, processor.NewClickHouseStore(conn), cfg)
}

func newTracer() trace.Tracer {
	return telemetry.GetTracer("duunihaku/services/archive")
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	shutdown, err := telemetry.InitTracer(context.Background(), "archive-service", cfg.OTelCollectorURL)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := shutdown(ctx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
			return nil
		},
	})
	return nil
}

func migrate(lc fx.Lifecycle, conn clickhouse.Conn, cfg *config.Config, logger *zap.Logger) {
	if !cfg.MigrateOnStart {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return schema.NewMigrator(conn, logger).Migrate(ctx, migrations.All)
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newNATSConnection,
			newClickHouseConnection,
			newListingProcessor,
			events.NewHandler,
			newTracer,
		),
		fx.Invoke(
			initTracing,
			migrate,
			func(handler *events.Handler, lc fx.Lifecycle) {
				handler.RegisterSubscriptions(lc)
			},
		),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
