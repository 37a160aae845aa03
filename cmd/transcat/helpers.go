package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/transcat/internal/classification"
	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/engine"
	"github.com/Veraticus/transcat/internal/storage"
)

var storeRetry = common.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2,
}

// initStorage opens the configured record store and migrates it.
func initStorage(ctx context.Context) (*storage.Store, error) {
	db := appCfg.Database

	var store *storage.Store
	err := common.WithRetry(ctx, func() error {
		var openErr error
		store, openErr = storage.Open(ctx, db.Driver, db.DSN, db.Table)
		return openErr
	}, storeRetry)
	if err != nil {
		return nil, common.NewUserError("Cannot reach the database. Check database.dsn or DB_URL.", err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Opened record store", "driver", db.Driver, "table", db.Table)
	return store, nil
}

// buildAnalyzer assembles the detector chain: stored descriptions first,
// then the configured regex rules.
func buildAnalyzer(store *storage.Store) (*classification.Analyzer, error) {
	var rules []classification.Rule
	if appCfg.Rules.File != "" {
		var err error
		rules, err = classification.LoadRules(appCfg.Rules.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
	}
	regex, err := classification.NewRegexDetector(rules)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded regex rules", "count", regex.Len())

	return classification.NewAnalyzer(
		[]classification.Detector{
			classification.NewExactMatchDetector(store),
			regex,
		},
		classification.WithSkipMalformed(appCfg.Pipeline.SkipMalformed),
	), nil
}

// buildEngine wires the pipeline. A nil emitter logs label events.
func buildEngine(store *storage.Store, events engine.EventEmitter) (*engine.Engine, error) {
	analyzer, err := buildAnalyzer(store)
	if err != nil {
		return nil, err
	}
	cfg := engine.DefaultConfig()
	cfg.Trainer = appCfg.Trainer()
	return engine.NewWithConfig(store, analyzer, events, cfg), nil
}

// redisClient connects to the configured Redis server.
func redisClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(appCfg.Stream.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: stream.url: %w", common.ErrInvalidConfig, err)
	}
	client := redis.NewClient(opts)

	err = common.WithRetry(ctx, func() error {
		if pingErr := client.Ping(ctx).Err(); pingErr != nil {
			return fmt.Errorf("%w: redis ping: %w", common.ErrStoreUnavailable, pingErr)
		}
		return nil
	}, storeRetry)
	if err != nil {
		_ = client.Close()
		return nil, common.NewUserError("Cannot reach Redis. Check stream.url or REDIS_URL.", err)
	}
	return client, nil
}
