// Package sweeper runs the periodic cleanup of expired auth state.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = 30 * time.Minute

// Target is the auth state the sweeper keeps tidy.
type Target interface {
	CleanExpiredCSRFTokens(ctx context.Context)
	// IsAuthenticated evicts the live session when it has expired.
	IsAuthenticated(ctx context.Context) bool
}

type Config struct {
	Interval time.Duration
	Logger   *logrus.Logger
}

// Sweeper calls Target on a fixed interval until shut down.
type Sweeper interface {
	Start(ctx context.Context) error
	Shutdown()
	// RunOnce performs a single sweep synchronously.
	RunOnce(ctx context.Context)
}

type sweeper struct {
	cfg    Config
	target Target

	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(cfg Config, target Target) Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &sweeper{cfg: cfg, target: target}
}

func (s *sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	s.cfg.Logger.Infof("sweeper started, interval: %s", s.cfg.Interval)
	return nil
}

func (s *sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *sweeper) RunOnce(ctx context.Context) {
	start := time.Now()
	s.target.CleanExpiredCSRFTokens(ctx)
	authenticated := s.target.IsAuthenticated(ctx)
	s.cfg.Logger.WithFields(logrus.Fields{
		"session_active": authenticated,
		"took":           time.Since(start).String(),
	}).Debug("sweep finished")
}

func (s *sweeper) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.cfg.Logger.Info("sweeper stopped")
}
