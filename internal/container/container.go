// Package container wires the application dependencies from configuration.
// Components receive everything through constructors; the container is the
// only place that knows concrete implementations.
package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/categorizer"
	"fjacquet/csv-ingest/internal/config"
	"fjacquet/csv-ingest/internal/csvparser"
	"fjacquet/csv-ingest/internal/dedup"
	"fjacquet/csv-ingest/internal/export"
	"fjacquet/csv-ingest/internal/ingest"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/mapping"
	"fjacquet/csv-ingest/internal/metrics"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/resilience"
	"fjacquet/csv-ingest/internal/store"
	"fjacquet/csv-ingest/internal/store/postgres"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation; all fields are private and only
// reachable through getters.
type Container struct {
	logger  logging.Logger
	config  *config.Config
	storage store.Storage
	cache   cache.Store
	seed    *store.Seed

	classifier   categorizer.Classifier
	engine       *categorizer.Engine
	applier      *categorizer.Applier
	batch        *categorizer.BatchProcessor
	trainer      *categorizer.Trainer
	resolver     *mapping.Resolver
	mappings     *mapping.Service
	orchestrator *ingest.Orchestrator
	exporter     *export.Exporter
	metrics      *metrics.IngestMetrics

	closers []func() error
}

// NewContainer creates and wires all application dependencies. An empty
// database.dsn selects the in-memory store, seeded with the default data.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	seed, err := store.LoadSeed(cfg.Database.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}

	c := &Container{logger: logger, config: cfg, seed: seed}

	if cfg.Database.DSN == "" {
		mem := store.NewMemoryStore()
		if _, err := store.ApplySeed(ctx, mem, seed, "", logger); err != nil {
			return nil, err
		}
		c.storage = mem
		c.cache = cache.NewMemoryCache()
		logger.Info("Using in-memory storage")
	} else {
		db, err := postgres.OpenDB(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		c.storage = postgres.NewStore(db)
		c.cache = postgres.NewCacheStore(db)
		logger.Info("Using PostgreSQL storage", logging.F("max_open_conns", cfg.Database.MaxOpenConns))
	}

	c.closers = append(c.closers, c.storage.Close)

	if err := c.wire(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWithStorage wires the container over caller-provided storage
// and cache. Used by tests and by embedding programs.
func NewContainerWithStorage(ctx context.Context, cfg *config.Config, storage store.Storage, c cache.Store) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	seed, err := store.LoadSeed(cfg.Database.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	if c == nil {
		c = cache.NewMemoryCache()
	}
	out := &Container{
		logger:  logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format),
		config:  cfg,
		storage: storage,
		cache:   c,
		seed:    seed,
	}
	if err := out.wire(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Container) wire(ctx context.Context) error {
	cfg := c.config

	classifier, err := c.newClassifier(ctx)
	if err != nil {
		return err
	}
	c.classifier = classifier

	c.metrics = metrics.NewIngestMetrics()
	c.engine = categorizer.NewDefaultEngine(categorizer.EngineOptions{
		Classifier:      classifier,
		Cache:           c.cache,
		CacheTTL:        cfg.CacheTTL(),
		DefaultCategory: cfg.Categorization.DefaultCategory,
	}, c.logger)
	c.engine.SetObserver(c.metrics)

	c.applier = categorizer.NewApplier(c.storage, c.storage, cfg.Categorization.ConfidenceThreshold)
	c.batch = categorizer.NewBatchProcessor(c.engine, c.applier, cfg.Categorization.Workers, c.logger)
	c.trainer = categorizer.NewTrainer(c.storage, c.storage, c.cache, cfg.TrainingTTL(), c.logger)

	parser := csvparser.NewRowParser()
	c.resolver = mapping.NewResolver(c.storage, c.storage, cfg.Ingest.FallbackInstitution, c.logger)
	c.mappings = mapping.NewService(c.storage, parser)

	policy, err := dedup.ParsePolicy(cfg.Ingest.DedupPolicy)
	if err != nil {
		return err
	}
	c.orchestrator, err = ingest.NewOrchestrator(ingest.Dependencies{
		Storage:      c.storage,
		Resolver:     c.resolver,
		Parser:       parser,
		Engine:       c.engine,
		Applier:      c.applier,
		KeywordTable: c.seed.KeywordTable(),
		Cache:        c.cache,
		DedupPolicy:  policy,
		Workers:      cfg.Categorization.Workers,
		Recorder:     c.metrics,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}

	c.exporter = export.NewExporter(c.storage, c.storage, firstRune(cfg.CSV.ExportDelimiter), c.logger)

	c.logger.Info("Container initialized successfully",
		logging.F("ai_enabled", cfg.AI.Enabled),
		logging.F("strategies", c.engine.Strategies()),
		logging.F(logging.FieldWorkers, cfg.Categorization.Workers))
	return nil
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// newClassifier returns nil when the external classifier is disabled so the
// engine skips the external tier. Cached results are still served.
func (c *Container) newClassifier(ctx context.Context) (categorizer.Classifier, error) {
	cfg := c.config
	if !cfg.AI.Enabled {
		c.logger.Info("AI categorization disabled")
		return nil, nil
	}
	if cfg.AI.APIKey == "" {
		c.logger.Warn("AI categorization enabled but no API key is set")
		return categorizer.UnavailableClassifier{Reason: "API key not set"}, nil
	}

	var next categorizer.Classifier
	switch cfg.AI.Provider {
	case config.ProviderGenAI:
		g, err := categorizer.NewGenAIClassifier(ctx, cfg.AI.APIKey, cfg.AI.Model, c.logger)
		if err != nil {
			return nil, err
		}
		next = g
	default:
		g, err := categorizer.NewGeminiClassifier(ctx, cfg.AI.APIKey, cfg.AI.Model, c.logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, g.Close)
		next = g
	}

	policy := resilience.DefaultConfig()
	policy.BreakerMinRequests = cfg.AI.BreakerMinRequests
	policy.BreakerFailureRatio = cfg.AI.BreakerFailureRatio
	policy.BreakerOpenTimeout = time.Duration(cfg.AI.BreakerOpenTimeoutSeconds) * time.Second
	executor := resilience.NewExecutor(policy, c.logger)

	c.logger.Info("AI categorization enabled",
		logging.F("provider", cfg.AI.Provider),
		logging.F("model", cfg.AI.Model))
	return categorizer.NewGuardedClassifier(next, cfg.AI.RequestsPerMinute, cfg.AITimeout(), executor), nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStorage returns the storage backend.
func (c *Container) GetStorage() store.Storage {
	return c.storage
}

// GetCache returns the result cache.
func (c *Container) GetCache() cache.Store {
	return c.cache
}

// GetSeed returns the loaded seed data.
func (c *Container) GetSeed() *store.Seed {
	return c.seed
}

// GetClassifier returns the external classifier, nil when disabled.
func (c *Container) GetClassifier() categorizer.Classifier {
	return c.classifier
}

// GetEngine returns the categorization engine.
func (c *Container) GetEngine() *categorizer.Engine {
	return c.engine
}

// GetApplier returns the category applier.
func (c *Container) GetApplier() *categorizer.Applier {
	return c.applier
}

// GetBatchProcessor returns the re-categorization pool.
func (c *Container) GetBatchProcessor() *categorizer.BatchProcessor {
	return c.batch
}

// GetTrainer returns the training data collector.
func (c *Container) GetTrainer() *categorizer.Trainer {
	return c.trainer
}

// GetMappingService returns the mapping administration service.
func (c *Container) GetMappingService() *mapping.Service {
	return c.mappings
}

// GetOrchestrator returns the ingestion orchestrator.
func (c *Container) GetOrchestrator() *ingest.Orchestrator {
	return c.orchestrator
}

// GetExporter returns the CSV exporter.
func (c *Container) GetExporter() *export.Exporter {
	return c.exporter
}

// GetMetrics returns the metrics registry.
func (c *Container) GetMetrics() *metrics.IngestMetrics {
	return c.metrics
}

// KeywordTable returns the ordered keyword table of the seed.
func (c *Container) KeywordTable() []models.CategoryConfig {
	return c.seed.KeywordTable()
}

// LoadCatalogue reads the categories and cached training data.
func (c *Container) LoadCatalogue(ctx context.Context) (*categorizer.Catalogue, error) {
	return c.orchestrator.Catalogue(ctx)
}

// DB returns the PostgreSQL handle, nil for in-memory storage.
func (c *Container) DB() *sql.DB {
	if pg, ok := c.storage.(*postgres.Store); ok {
		return pg.DB()
	}
	return nil
}

// Close writes the metrics textfile and releases resources.
func (c *Container) Close() error {
	var firstErr error
	if c.metrics != nil {
		if err := c.metrics.WriteToTextfile(c.config.Metrics.Textfile); err != nil {
			c.logger.WithError(err).Warn("Failed to write metrics")
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	c.logger.Info("Container closed")
	return firstErr
}
