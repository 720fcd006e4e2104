package main

import (
	"context"

	"storefront-engine/internal/config"
	"storefront-engine/internal/db"
	"storefront-engine/internal/logging"
	"storefront-engine/internal/repository/catalog"
	"storefront-engine/internal/seed"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, "seed")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, catalog.NewPostgres(pool, logger)); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied")
}
