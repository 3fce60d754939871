// Package token implements the Token Refresh Scheduler.
//
// The scheduler runs one periodic validity check against the credential
// provider while the connection manager is initialized. It is the only
// long-lived timer in the subsystem and is started and stopped exactly once
// per initialize/dispose pair; Stop on an already-stopped scheduler is a
// no-op.
package token

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roomlink/realtime/internal/credentials"
)

// Policy selects what happens when a validity check fails.
type Policy string

const (
	// PolicyStop halts the scheduler and nothing else. The connection keeps
	// running on the stale token until the server evicts it.
	PolicyStop Policy = "stop"

	// PolicyDisconnect additionally invokes the OnInvalid callback so the
	// owner can tear the connection down.
	PolicyDisconnect Policy = "disconnect"
)

// Config holds scheduler settings.
type Config struct {
	Interval time.Duration // Check interval (default: 4m)
	Policy   Policy        // Reaction to an invalid token (default: stop)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 4 * time.Minute,
		Policy:   PolicyStop,
	}
}

// Scheduler periodically asks the credential provider whether the held
// token is still usable.
type Scheduler struct {
	cfg       Config
	provider  credentials.Provider
	onInvalid func()
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler. onInvalid is only invoked under PolicyDisconnect
// and may be nil.
func New(cfg Config, provider credentials.Provider, onInvalid func(), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStop
	}
	return &Scheduler{
		cfg:       cfg,
		provider:  provider,
		onInvalid: onInvalid,
		logger:    logger,
	}
}

// Start begins the check loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Debug("token refresh scheduler started",
		"interval", s.cfg.Interval,
		"policy", s.cfg.Policy,
	)
}

// Stop cancels the check loop and waits for it to exit. Unconditional and
// idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.logger.Debug("token refresh scheduler stopped")
}

// Running reports whether the check loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Parent ctx death must not leave Running reporting a dead loop.
			s.mu.Lock()
			s.running = false
			s.cancel = nil
			s.mu.Unlock()
			return
		case <-ticker.C:
			if s.provider.HasValidToken() {
				continue
			}

			s.logger.Warn("held token is no longer valid",
				"policy", s.cfg.Policy,
			)

			// Halt the loop before invoking the callback: the callback may
			// call Stop (Disconnect does), which must not wait on this
			// goroutine.
			s.mu.Lock()
			s.running = false
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
			s.mu.Unlock()

			if s.cfg.Policy == PolicyDisconnect && s.onInvalid != nil {
				s.onInvalid()
			}
			return
		}
	}
}
