package sentry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kinderbill/kinderbill/internal/config"
	"github.com/kinderbill/kinderbill/internal/logger"
)

const flushTimeout = 2 * time.Second

// Service manages the Sentry SDK lifecycle.
type Service struct {
	cfg *config.Configuration
	log *logger.Logger
}

func NewService(cfg *config.Configuration, log *logger.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Start initializes the Sentry SDK if enabled. Initialization failure is
// logged, never fatal.
func (s *Service) Start() error {
	if !s.cfg.Sentry.Enabled {
		s.log.Debugw("sentry disabled, skipping initialization")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.cfg.Sentry.DSN,
		Environment:      s.cfg.Sentry.Environment,
		TracesSampleRate: s.cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		s.log.Errorw("failed to initialize sentry", "error", err)
		return nil
	}

	s.log.Infow("sentry initialized", "environment", s.cfg.Sentry.Environment)
	return nil
}

// Stop flushes buffered events.
func (s *Service) Stop() {
	if s.cfg.Sentry.Enabled {
		sentry.Flush(flushTimeout)
	}
}
