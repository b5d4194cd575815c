// Package chat answers chat requests: validation, lazy backend loading and
// deadline-bounded ranking.
package chat

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/internal/harness"
	"github.com/hyperjump/ayuda/internal/metrics"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/pkg/utils"
)

// Searcher is the loaded backend; *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, message string, topK int) (*models.RankedResult, error)
	CatalogSize() int
}

// Backend is the lifecycle container the service loads the searcher through.
type Backend = harness.Backend[Searcher]

// Options configures a Service.
type Options struct {
	Limits         models.Limits
	ImportTimeout  time.Duration
	RequestTimeout time.Duration
	Workers        int
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// Service is safe for concurrent use.
type Service struct {
	backend        *Backend
	exec           *harness.Executor
	limits         models.Limits
	importTimeout  time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// NewService creates the request executor and wraps backend.
func NewService(backend *Backend, opts Options) (*Service, error) {
	logger := utils.OrNop(opts.Logger)
	execOpts := harness.ExecutorOptions{Workers: opts.Workers, Logger: logger}
	if opts.Metrics != nil {
		execOpts.OnAbandon = opts.Metrics.ObserveAbandon
	}
	exec, err := harness.NewExecutor(execOpts)
	if err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		opts.Metrics.TrackPool("search", exec.Running, exec.Workers)
	}
	return &Service{
		backend:        backend,
		exec:           exec,
		limits:         opts.Limits,
		importTimeout:  opts.ImportTimeout,
		requestTimeout: opts.RequestTimeout,
		logger:         logger,
		metrics:        opts.Metrics,
	}, nil
}

// Limits returns the request bounds.
func (s *Service) Limits() models.Limits {
	return s.limits
}

// RequestTimeout is the ranking deadline.
func (s *Service) RequestTimeout() time.Duration {
	return s.requestTimeout
}

// Chat validates req, makes sure the backend is loaded and ranks the catalog.
// Errors are *models.ValidationError, *harness.UnavailableError,
// *harness.TimeoutError, or an internal error.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (*models.RankedResult, error) {
	began := time.Now()
	id := uuid.NewString()
	logger := s.logger.With(zap.String("query_id", id))

	topK, err := req.Validate(s.limits)
	if err != nil {
		s.observe(metrics.OutcomeBadRequest, began)
		return nil, err
	}

	searcher, err := s.backend.Ensure(ctx, s.importTimeout)
	if err != nil {
		s.observe(metrics.OutcomeUnavailable, began)
		logger.Warn("search backend not available", zap.Error(err))
		return nil, err
	}

	if n := searcher.CatalogSize(); topK > n {
		topK = n
	}
	res, err := harness.Run(ctx, s.exec, "search", s.requestTimeout, func(ctx context.Context) (*models.RankedResult, error) {
		return searcher.Search(ctx, req.Message, topK)
	})
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, harness.ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
		s.observe(outcome, began)
		logger.Error("search failed",
			zap.Error(err),
			zap.Int("message_chars", utf8.RuneCountInString(req.Message)),
			zap.Int("top_k", topK),
		)
		return nil, err
	}

	s.observe(metrics.OutcomeOK, began)
	if s.metrics != nil && res.QueryInfo != nil {
		s.metrics.Intents.WithLabelValues(res.QueryInfo.Intent).Inc()
		if res.QueryInfo.TranslationFallback {
			s.metrics.TranslationFallbacks.WithLabelValues(res.QueryInfo.Language).Inc()
		}
	}
	logger.Debug("search completed",
		zap.Int("results", len(res.Results)),
		zap.Int("top_k", topK),
		zap.Duration("elapsed", time.Since(began)),
	)
	return res, nil
}

func (s *Service) observe(outcome string, began time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveChat(outcome, time.Since(began))
	}
}

// Warmup loads the backend once with the import timeout. The service keeps
// working when it fails; the next request tries again.
func (s *Service) Warmup(ctx context.Context) error {
	began := time.Now()
	_, err := s.backend.Ensure(ctx, s.importTimeout)
	if err != nil {
		s.logger.Warn("backend did not load at startup",
			zap.Duration("timeout", s.importTimeout),
			zap.Duration("elapsed", time.Since(began)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Health is the readiness report served at /api/health.
type Health struct {
	Status        string  `json:"status"`
	BackendLoaded bool    `json:"backend_loaded"`
	BackendState  string  `json:"backend_state"`
	ImportError   *string `json:"import_error"`
	CatalogSize   int     `json:"catalog_size"`
}

// Health reports backend readiness without triggering a load.
func (s *Service) Health() Health {
	h := Health{Status: "ok", BackendState: s.backend.State().String()}
	if searcher, ok := s.backend.Value(); ok {
		h.BackendLoaded = true
		h.CatalogSize = searcher.CatalogSize()
	}
	if err := s.backend.LastError(); err != nil {
		msg := err.Error()
		h.ImportError = &msg
	}
	return h
}

// Close releases the request executor and the backend.
func (s *Service) Close() error {
	s.exec.Close()
	return s.backend.Close()
}
