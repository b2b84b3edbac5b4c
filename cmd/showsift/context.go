package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/feed"
	"github.com/showsift/showsift/internal/logger"
	"github.com/showsift/showsift/internal/metadata/imdb"
	"github.com/showsift/showsift/internal/metadata/tmdb"
	"github.com/showsift/showsift/internal/metrics"
	"github.com/showsift/showsift/internal/pipeline"
	"github.com/showsift/showsift/internal/poster"
	"github.com/showsift/showsift/internal/resolver"
	"github.com/showsift/showsift/internal/vision/openrouter"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// withStore loads configuration, builds the logger and opens the
// catalog database for one-shot commands, closing both when fn
// returns.
func (c *commandContext) withStore(fn func(cfg *config.Config, log *logger.Logger, store *database.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Close()

	db, store, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(cfg, log, store)
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}

func openDatabase(cfg *config.Config, log *logger.Logger) (*database.DB, *database.Store, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, database.NewStore(db, log.Logger), nil
}

// services bundles the wired pipeline and resolver for a command.
type services struct {
	pipeline *pipeline.Service
	resolver *resolver.Service
	tmdb     *tmdb.Client
}

// buildServices wires the pipeline and resolver with whichever
// collaborators the configuration enables. mets and events may be nil
// for one-shot commands, which skips metric and websocket reporting.
func buildServices(cfg *config.Config, store *database.Store, mets *metrics.Metrics, events pipeline.EventSink, log *logger.Logger) *services {
	tmdbClient := tmdb.NewClient(cfg.TMDB, log.Logger)
	imdbClient := imdb.NewClient(cfg.IMDB, log.Logger)
	modelClient := openrouter.NewClient(cfg.OpenRouter, log.Logger)

	// Left nil when the poster directory cannot be created; the
	// resolver skips the vision tiers without a poster source.
	var posters resolver.PosterSource
	if fetcher, err := poster.NewFetcher(cfg.Posters, log.Logger); err != nil {
		log.Warn().Err(err).Str("dir", cfg.Posters.Dir).Msg("Poster cache unavailable")
	} else {
		posters = fetcher
	}

	res := resolver.NewService(store, tmdbClient, imdbClient, modelClient, posters, cfg.Resolver, log.Logger)
	pipe := pipeline.NewService(store, feed.NewLoader(log.Logger), modelClient, res, mets, events, cfg, log.Logger)

	return &services{
		pipeline: pipe,
		resolver: res,
		tmdb:     tmdbClient,
	}
}
