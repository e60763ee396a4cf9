package main

import (
	"context"
	"log"

	"duunihaku/common/cache"
	"duunihaku/common/cache/memory"
	"duunihaku/common/cache/redis"
	"duunihaku/common/telemetry"
	"duunihaku/services/search/internal/config"
	"duunihaku/services/search/internal/messaging"
	"duunihaku/services/search/internal/search"
	"duunihaku/services/search/internal/server"
	"duunihaku/services/search/internal/sources"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newLogger(lc fx.Lifecycle) (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	syncOnStop(lc, logger)
	return logger, nil
}

// syncOnStop flushes logger after every other stop hook has run. A sync
// error is reported but does not fail shutdown.
func syncOnStop(lc fx.Lifecycle, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := logger.Sync(); err != nil {
				log.Printf("failed to sync logger: %v", err)
			}
			return nil
		},
	})
}

func newCache(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) cache.Cache {
	opts := cache.DefaultOptions()
	opts.DefaultTTL = cfg.CacheTTL
	opts.RedisURL = cfg.RedisAddr
	opts.RedisPassword = cfg.RedisPassword
	opts.RedisDB = cfg.RedisDB

	var c cache.Cache
	if cfg.RedisAddr != "" {
		logger.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
		c = redis.New(opts)
	} else {
		logger.Info("using in-memory cache")
		c = memory.New(opts)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c
}

func newSources(cfg *config.Config, c cache.Cache, logger *zap.Logger) []sources.Source {
	opts := sources.Options{
		Timeout:  cfg.SourceTimeout,
		Rate:     cfg.SourceRate,
		Burst:    cfg.SourceBurst,
		CacheTTL: cfg.CacheTTL,
	}
	return []sources.Source{
		sources.NewDuunitori(cfg.DuunitoriURL, opts, c, logger),
		sources.NewTE(cfg.TEAPIURL, opts, c, logger),
	}
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (messaging.Publisher, error) {
	publisher, err := messaging.NewPublisher(logger, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			publisher.Close()
			return nil
		},
	})
	return publisher, nil
}

func newSearcher(srcs []sources.Source, publisher messaging.Publisher, cfg *config.Config, logger *zap.Logger) server.Searcher {
	return search.NewSearcher(srcs, publisher, cfg.SourcePageSize, logger)
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	shutdown, err := telemetry.InitTracer(context.Background(), "search-service", cfg.OTelCollectorURL)
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

func registerServer(lc fx.Lifecycle, srv *server.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newCache,
			newSources,
			newPublisher,
			newSearcher,
			server.NewServer,
		),
		fx.Invoke(
			initTracing,
			registerServer,
		),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
