package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront-engine/internal/config"
	"storefront-engine/internal/db"
	"storefront-engine/internal/importer"
	"storefront-engine/internal/logging"
	"storefront-engine/internal/repository/catalog"

	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to vendor/product CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, "importer")
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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.String("file", filePath), zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, catalog.NewPostgres(pool, logger), logger)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d vendors and %d products in %s\n", res.Vendors, res.Products, time.Since(start).Truncate(time.Millisecond))
}
