package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"storefront-engine/internal/config"
	"storefront-engine/internal/db"
	"storefront-engine/internal/delivery"
	"storefront-engine/internal/engine"
	"storefront-engine/internal/events"
	"storefront-engine/internal/httpserver"
	"storefront-engine/internal/logging"
	"storefront-engine/internal/migrate"
	"storefront-engine/internal/repository/catalog"
	"storefront-engine/internal/repository/kv"
	"storefront-engine/internal/seed"
	"storefront-engine/internal/service/persistence"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	kv      kv.Store
	catalog catalog.Repository
	close   func()
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, "api")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer st.close()

	writer := persistence.NewWriter(st.kv, logger.Named("persistence"))
	eng := engine.New(st.catalog, writer, delivery.NewDistanceEstimator(), logger.Named("engine"))
	if err := eng.Load(ctx); err != nil {
		logger.Fatal("load engine state", zap.Error(err))
	}

	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("connect feed", zap.Error(err))
		}
		defer conn.Close()

		feedLogger := logger.Named("feed")
		if err := events.StartConsumer(ctx, conn, events.QueueOrderStatus, events.OrderStatusHandler(eng, feedLogger), feedLogger); err != nil {
			logger.Fatal("start order status consumer", zap.Error(err))
		}
		if err := events.StartConsumer(ctx, conn, events.QueueRatingFetched, events.RatingHandler(eng, feedLogger), feedLogger); err != nil {
			logger.Fatal("start rating consumer", zap.Error(err))
		}
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named("http"), httpserver.Deps{
		Engine:       eng,
		Ready:        st.kv.Ping,
		AllowOrigins: cfg.CORSAllowOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := writer.Close(shutdownCtx); err != nil {
		logger.Error("flush pending writes", zap.Error(err))
	}
	logger.Info("server stopped")
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if err := migrate.Apply(ctx, pool, logger.Named("migrate")); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		return &stores{
			kv:      kv.NewPostgres(pool),
			catalog: catalog.NewPostgres(pool, logger.Named("catalog")),
			close:   pool.Close,
		}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := kv.NewRedis(client, cfg.RedisKeyPrefix)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cat, err := demoCatalog(ctx)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &stores{kv: store, catalog: cat, close: func() { _ = client.Close() }}, nil

	case config.BackendMemory:
		cat, err := demoCatalog(ctx)
		if err != nil {
			return nil, err
		}
		return &stores{kv: kv.NewMemory(), catalog: cat, close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// demoCatalog backs non-postgres deployments with the seeded demo catalog.
func demoCatalog(ctx context.Context) (catalog.Repository, error) {
	cat := catalog.NewMemory()
	if err := seed.Apply(ctx, cat); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return cat, nil
}
