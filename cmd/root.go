// Package cmd implements the mealplan CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/mealplan/internal/catalog"
	"github.com/theirongolddev/mealplan/internal/config"
	"github.com/theirongolddev/mealplan/internal/logging"
	"github.com/theirongolddev/mealplan/internal/pipeline"
	"github.com/theirongolddev/mealplan/internal/planner"
	"github.com/theirongolddev/mealplan/internal/store"
)

var (
	flagStore      string
	flagCatalogURL string
	flagOffline    bool
	flagNoCache    bool
	flagLogLevel   string
	flagQuiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "mealplan",
	Short: "Daily meal budget planner",
	Long:  "Plan meals day by day from a product catalog, keeping each day within a spending limit.",
	RunE:  runPlan,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "Plan store file (default $XDG_DATA_HOME/mealplan/plan.db)")
	rootCmd.PersistentFlags().StringVar(&flagCatalogURL, "catalog-url", "", "Catalog service base URL")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Use the cached catalog without contacting the service")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Never fall back to the cached catalog")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagStore != "" {
		cfg.Store.Path = flagStore
	}
	if flagCatalogURL != "" {
		cfg.Catalog.BaseURL = flagCatalogURL
	}
	if flagNoCache {
		cfg.Catalog.UseCache = false
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// session bundles the state every plan command works with.
type session struct {
	cfg    config.Config
	log    *logging.Logger
	db     *store.DB
	engine *planner.Engine
	result *pipeline.LoadResult
}

// openSession opens the store and builds the engine. With hydrate set it also
// loads the catalog and hydrates the engine, failing when no catalog is
// available.
func openSession(ctx context.Context, hydrate bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{
		Level:    cfg.Log.Level,
		Path:     pipeline.LogPath(),
		Fallback: os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	db, err := store.Open(storePath(cfg))
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("opening plan store: %w", err)
	}

	s := &session{
		cfg: cfg,
		log: log,
		db:  db,
		engine: planner.New(db,
			planner.WithLogger(fieldLogger(log, "planner")),
			planner.WithDefaultDayLimit(cfg.General.DefaultDayLimit),
		),
	}
	if !hydrate {
		return s, nil
	}

	res, err := catalogLoader(cfg, db)(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.result = res
	s.engine.Hydrate(res.Snapshot)
	if res.FromCache && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Using cached catalog from %s\n", res.Snapshot.FetchedAt.Local().Format("2006-01-02 15:04"))
	}
	if res.CacheErr != nil {
		log.WithError(res.CacheErr).Warn("caching catalog")
	}
	return s, nil
}

// Close releases the store and the log file.
func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Warn("closing plan store")
	}
	_ = s.log.Close()
}

func storePath(cfg config.Config) string {
	if p := cfg.StorePath(); p != "" {
		return p
	}
	return store.DefaultPath()
}

// catalogLoader returns the catalog loading function shared by the CLI, the
// TUI and the daemon.
func catalogLoader(cfg config.Config, cache pipeline.Cache) func(context.Context) (*pipeline.LoadResult, error) {
	var fetcher pipeline.Fetcher = catalog.NewClient(cfg.Catalog.BaseURL, catalog.WithTimeout(cfg.CatalogTimeout()))
	if flagOffline {
		fetcher = offlineFetcher{}
	}
	useCache := cfg.Catalog.UseCache || flagOffline

	return func(ctx context.Context) (*pipeline.LoadResult, error) {
		res, err := pipeline.LoadCatalog(ctx, fetcher, cache, useCache)
		if err != nil {
			return res, fmt.Errorf("catalog at %s: %w", cfg.Catalog.BaseURL, err)
		}
		return res, nil
	}
}

var errOffline = errors.New("offline mode")

// offlineFetcher never reaches the network.
type offlineFetcher struct{}

func (offlineFetcher) Fetch(context.Context) (*catalog.Payload, error) {
	return nil, errOffline
}

// fieldLogger narrows a session logger for a component.
func fieldLogger(l *logging.Logger, component string) logrus.FieldLogger {
	return l.WithField("component", component)
}
