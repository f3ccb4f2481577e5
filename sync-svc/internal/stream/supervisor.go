package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"restaurant-sync/sync-svc/internal/domain"
)

type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	// MaxRetries caps consecutive attempts that never connected; 0 retries
	// forever. A dropped healthy session resets the count.
	MaxRetries int
}

// Delay doubles Initial per failed attempt up to Max, then keeps a random
// point in the upper half so many clients do not reconnect in lockstep.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	delay, ceiling := b.Initial, b.Max
	if delay <= 0 {
		delay = time.Second
	}
	if ceiling < delay {
		ceiling = delay
	}
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	if delay > ceiling {
		delay = ceiling
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half+1)))
}

type SupervisorConfig struct {
	Scope   Scope
	Backoff Backoff
	// OnFrame receives every raw frame in arrival order.
	OnFrame func(ctx context.Context, raw string)
	// OnConnected runs each time a session reaches Connected, before any
	// frame of that session is delivered.
	OnConnected func(ctx context.Context) error
	OnState     func(domain.ConnState)
}

// Supervisor keeps one live session per scope, replacing it with a fresh one
// after every disconnect.
type Supervisor struct {
	dialer Dialer
	cfg    SupervisorConfig

	mu       sync.RWMutex
	state    domain.ConnState
	attempts int
}

func NewSupervisor(dialer Dialer, cfg SupervisorConfig) *Supervisor {
	return &Supervisor{
		dialer: dialer,
		cfg:    cfg,
		state:  domain.Disconnected,
	}
}

// State reports the state of the current session.
func (s *Supervisor) State() domain.ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Attempts is the number of consecutive failed attempts since the last
// successful connect.
func (s *Supervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// Run blocks until ctx is cancelled or the retry budget is spent.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		connected := false
		session := NewSession(s.dialer, s.cfg.Scope,
			func(state domain.ConnState) {
				s.setState(state)
				if state == domain.Connected {
					connected = true
					s.resync(ctx)
				}
			},
			func(raw string) {
				if s.cfg.OnFrame != nil {
					s.cfg.OnFrame(ctx, raw)
				}
			},
		)

		err := session.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, ErrMissingRestaurant) {
			return err
		}

		// A session that reached Connected and later dropped is not a failed
		// attempt; only sessions that never connected count against the cap.
		s.mu.Lock()
		if connected {
			s.attempts = 0
		} else {
			s.attempts++
		}
		attempt := s.attempts
		s.mu.Unlock()

		if limit := s.cfg.Backoff.MaxRetries; limit > 0 && attempt >= limit {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := s.cfg.Backoff.Delay(attempt)
		log.Printf("stream: session for %s/%s ended (%v), reconnecting in %s", s.cfg.Scope.RestaurantID, s.cfg.Scope.Role, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Supervisor) setState(state domain.ConnState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.cfg.OnState != nil {
		s.cfg.OnState(state)
	}
}

func (s *Supervisor) resync(ctx context.Context) {
	if s.cfg.OnConnected == nil {
		return
	}
	if err := s.cfg.OnConnected(ctx); err != nil {
		log.Printf("stream: resync after connect failed: %v", err)
	}
}
