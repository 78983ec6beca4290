package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ai_dungeon_master/config"
	"ai_dungeon_master/generator"
	"ai_dungeon_master/logger"
	"ai_dungeon_master/storage/sqlite"
	"ai_dungeon_master/story"
)

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	catalog *story.Catalog
	store   *sqlite.Store
}

func wireApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg.StoriesPath)
	if err != nil {
		return nil, fmt.Errorf("wire story catalog: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("wire save store: %w", err)
	}

	return &app{cfg: cfg, log: log, catalog: catalog, store: store}, nil
}

func loadCatalog(path string) (*story.Catalog, error) {
	if path == "" {
		return story.Default()
	}
	return story.Load(path)
}

func (a *app) Close() error {
	err := a.store.Close()
	_ = a.log.Sync()
	return err
}

// newGenerator returns the configured text generator, or nil when no API key
// is available. The returned close func is never nil.
func (a *app) newGenerator(ctx context.Context) (generator.TextGenerator, func() error, error) {
	noop := func() error { return nil }
	if a.cfg.AIAPIKey == "" {
		a.log.Warn("No AI key found, offline mode only", zap.String("provider", a.cfg.AIProvider))
		return nil, noop, nil
	}

	switch a.cfg.AIProvider {
	case generator.ProviderOpenAI:
		return generator.NewOpenAI(a.cfg.AIAPIKey, a.cfg.AIBaseURL), noop, nil
	case generator.ProviderGemini:
		gen, err := generator.NewGemini(ctx, a.cfg.AIAPIKey)
		if err != nil {
			return nil, noop, err
		}
		return gen, gen.Close, nil
	}
	return nil, noop, errors.New("unsupported AI provider " + a.cfg.AIProvider)
}

func (a *app) generationOptions() generator.Options {
	return generator.Options{
		Model:       a.cfg.AIModel,
		MaxTokens:   a.cfg.AIMaxTokens,
		Temperature: a.cfg.AITemperature,
	}
}
