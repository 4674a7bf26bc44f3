package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"greenbridge/ai"
	"greenbridge/config"
	"greenbridge/geo"
	"greenbridge/services"
	"greenbridge/storage"
	"greenbridge/utils"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	store     *storage.SQLStore
	snapshots *services.SnapshotService
	market    *services.Marketplace
}

func newApp(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*app, error) {
	if cfg.StoreDriver == storage.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	store, err := storage.NewSQLStore(ctx, cfg.StoreDriver, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}

	var noise services.Noise
	if cfg.MarketNoise {
		noise = services.NewLockedNoise(rand.New(rand.NewSource(time.Now().UnixNano())))
		logger.Info("[app] simulated market noise enabled")
	}

	var generator ai.Generator
	if client := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AICallsPerMinute, logger); client != nil {
		generator = client
		logger.Info("[app] generative assistant enabled (%s)", cfg.GeminiModel)
	} else {
		logger.Warn("[app] GEMINI_API_KEY not set, assistant answers from templates only")
	}

	var geocoder services.AddressGeocoder
	if cfg.GeocoderURL != "" {
		geocoder = geo.NewGeocoder(cfg.GeocoderURL, 3, logger)
	}

	snapshots := services.NewSnapshotService(logger, noise)
	predictor := services.NewPredictor(logger, noise)
	assistant := services.NewAssistant(generator, &utils.RetryConfig{
		MaxAttempts:    cfg.AIMaxRetries,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		AttemptTimeout: time.Duration(cfg.AITimeoutMs) * time.Millisecond,
		Logger:         logger,
	}, predictor, logger)

	market := services.NewMarketplace(services.MarketplaceDeps{
		Store:         store,
		Snapshots:     snapshots,
		Predictor:     predictor,
		Matcher:       services.NewMatcher(logger, cfg.MatchDefaultRadiusKm, cfg.MatchDefaultLimit),
		Assistant:     assistant,
		Geocoder:      geocoder,
		Logger:        logger,
		RecordHistory: true,
	})

	return &app{cfg: cfg, logger: logger, store: store, snapshots: snapshots, market: market}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("[app] closing store: %v", err)
	}
	a.logger.Sync()
}
