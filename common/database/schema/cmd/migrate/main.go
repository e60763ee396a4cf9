package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"duunihaku/common/database"
	"duunihaku/common/database/schema"
	"duunihaku/common/database/schema/migrations"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func main() {
	rollback := flag.Bool("rollback", false, "roll back the latest migration instead of applying")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.Options{
		DSN:      envOr("CLICKHOUSE_DSN", "127.0.0.1:9000"),
		Username: envOr("CLICKHOUSE_USERNAME", "default"),
		Password: envOr("CLICKHOUSE_PASSWORD", ""),
		Database: envOr("CLICKHOUSE_DATABASE", "duunihaku"),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer db.Close()

	migrator := schema.NewMigrator(db.Conn(), logger)

	if *rollback {
		latest := migrations.All[len(migrations.All)-1]
		logger.Info("Rolling back migration",
			zap.Int("version", latest.Version),
			zap.String("description", latest.Description))
		if err := migrator.RollbackMigration(ctx, latest); err != nil {
			logger.Fatal("Failed to roll back migration", zap.Error(err))
		}
		return
	}

	if err := migrator.Migrate(ctx, migrations.All); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	logger.Info("All migrations completed successfully")
}
