package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/internal/catalog"
	"github.com/hyperjump/ayuda/internal/chat"
	"github.com/hyperjump/ayuda/internal/config"
	"github.com/hyperjump/ayuda/internal/embedding"
	"github.com/hyperjump/ayuda/internal/entity"
	"github.com/hyperjump/ayuda/internal/harness"
	"github.com/hyperjump/ayuda/internal/intent"
	"github.com/hyperjump/ayuda/internal/language"
	"github.com/hyperjump/ayuda/internal/metrics"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/internal/query"
	"github.com/hyperjump/ayuda/internal/search"
	"github.com/hyperjump/ayuda/internal/storage"
	"github.com/hyperjump/ayuda/internal/translate"
	"github.com/hyperjump/ayuda/pkg/utils"
)

// Components holds initialized application components.
type Components struct {
	Chat    *chat.Service
	Metrics *metrics.Metrics
	closers []io.Closer
}

// Close releases the chat service, then the translation cache.
func (c *Components) Close() {
	if c.Chat != nil {
		_ = c.Chat.Close()
	}
	for _, cl := range c.closers {
		_ = cl.Close()
	}
}

// initializeComponents wires the query pipeline and returns a chat service whose
// backend (encoder + catalog) loads lazily on first use or on Warmup.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	logger = utils.OrNop(logger)
	m := metrics.New()
	comps := &Components{Metrics: m}

	proc, closer, err := buildProcessor(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		comps.closers = append(comps.closers, closer)
	}

	backend, err := harness.NewBackend(backendLoader(cfg, proc, logger), harness.BackendOptions{
		Logger:  logger,
		OnLoad:  m.ObserveLoad,
		OnState: func(s harness.State) { m.SetBackendState(int(s)) },
	})
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	svc, err := chat.NewService(backend, chat.Options{
		Limits: models.Limits{
			MaxMessageChars: cfg.Server.MaxMessageChars,
			DefaultTopK:     cfg.Search.DefaultTopK,
			MinTopK:         cfg.Search.MinTopK,
			MaxTopK:         cfg.Search.MaxTopK,
		},
		ImportTimeout:  cfg.Harness.ImportTimeout,
		RequestTimeout: cfg.Harness.RequestTimeout,
		Workers:        cfg.Harness.Workers,
		Logger:         logger,
		Metrics:        m,
	})
	if err != nil {
		_ = backend.Close()
		comps.Close()
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}
	comps.Chat = svc
	return comps, nil
}

// buildProcessor assembles detection, translation, intent and entities. The
// returned closer, when non-nil, releases the Redis translation cache.
func buildProcessor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*query.Processor, io.Closer, error) {
	detector := language.NewDetector(language.Options{
		MinConfidence: cfg.Language.MinConfidence,
		Allowed:       cfg.Language.Allowed,
	})

	translator, closer, err := buildTranslator(ctx, &cfg.Translate, logger)
	if err != nil {
		return nil, nil, err
	}

	rules := intent.DefaultRules()
	if len(cfg.Intent.Rules) > 0 {
		rules = make([]intent.Rule, len(cfg.Intent.Rules))
		for i, r := range cfg.Intent.Rules {
			rules[i] = intent.Rule{Name: r.Name, Keywords: r.Keywords}
		}
	}
	classifier, err := intent.NewClassifier(rules)
	if err != nil {
		return nil, closer, fmt.Errorf("failed to initialize intent classifier: %w", err)
	}
	names := make([]string, 0, len(rules))
	for _, r := range classifier.Rules() {
		names = append(names, r.Name)
	}
	logger.Debug("intent rules", zap.Strings("intents", names))

	router, err := entity.NewRouter(cfg.Entity.DefaultModel)
	if err != nil {
		return nil, closer, fmt.Errorf("failed to initialize entity extraction: %w", err)
	}

	return query.NewProcessor(detector, translate.NewService(translator, logger), classifier, router, logger), closer, nil
}

func buildTranslator(ctx context.Context, cfg *config.TranslateConfig, logger *zap.Logger) (translate.Translator, io.Closer, error) {
	var next translate.Translator
	switch cfg.Provider {
	case config.TranslateNone:
		return nil, nil, nil
	case config.TranslateGlossary:
		if cfg.GlossaryPath == "" {
			return translate.DefaultGlossary(), nil, nil
		}
		g, err := translate.LoadGlossary(cfg.GlossaryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load glossary: %w", err)
		}
		logger.Info("glossary loaded",
			zap.String("path", cfg.GlossaryPath),
			zap.Strings("languages", g.Languages()),
		)
		return g, nil, nil
	case config.TranslateOpenAI:
		next = translate.NewOpenAITranslator(translate.OpenAIOptions{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		})
	default:
		return nil, nil, fmt.Errorf("unknown translate provider %q", cfg.Provider)
	}

	if cfg.RedisAddr != "" {
		store, err := translate.NewRedisStore(ctx, translate.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err == nil {
			return translate.NewCached(next, store, logger), store, nil
		}
		logger.Warn("redis translation cache unavailable, using memory cache",
			zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return translate.NewCached(next, translate.NewMemoryStore(cfg.CacheSize), logger), nil, nil
}

func embeddingOptions(cfg *config.EmbeddingConfig) embedding.Options {
	return embedding.Options{
		Provider: cfg.Provider,
		ONNX: embedding.ONNXOptions{
			ModelPath:     cfg.ModelPath,
			TokenizerPath: cfg.TokenizerPath,
			LibraryPath:   cfg.LibraryPath,
			OutputName:    cfg.OutputName,
			Pooled:        cfg.Pooled,
			Dimensions:    cfg.Dimensions,
			MaxTokens:     cfg.MaxTokens,
			CacheSize:     cfg.CacheSize,
		},
	}
}

// loadCatalog reads the catalog from its configured source.
func loadCatalog(ctx context.Context, cfg *config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Source == config.SourceSQLite {
		store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog database: %w", err)
		}
		defer store.Close()
		return store.LoadCatalog(ctx)
	}
	return catalog.LoadFiles(cfg.DataPath, cfg.EmbeddingsPath)
}

// backendLoader loads the encoder and the catalog into a search engine.
func backendLoader(cfg *config.Config, proc search.Processor, logger *zap.Logger) harness.Loader[chat.Searcher] {
	return func(ctx context.Context) (chat.Searcher, error) {
		cat, err := loadCatalog(ctx, &cfg.Catalog)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		enc, err := embedding.New(embeddingOptions(&cfg.Embedding))
		if err != nil {
			return nil, err
		}
		if cat.Len() > 0 && cat.Dims() != enc.Dimensions() {
			_ = enc.Close()
			return nil, fmt.Errorf("%w: catalog has %d dimensions, encoder produces %d",
				search.ErrDimensionMismatch, cat.Dims(), enc.Dimensions())
		}
		logger.Info("search backend loaded",
			zap.Int("organizations", cat.Len()),
			zap.Int("dimensions", cat.Dims()),
			zap.String("provider", cfg.Embedding.Provider),
		)
		return search.NewEngine(proc, enc, cat), nil
	}
}
