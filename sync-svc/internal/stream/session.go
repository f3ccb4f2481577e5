package stream

import (
	"context"
	"errors"
	"sync"

	"restaurant-sync/sync-svc/internal/domain"
)

var (
	ErrSessionClosed     = errors.New("stream session already disconnected")
	ErrRetriesExhausted  = errors.New("stream reconnect retries exhausted")
	ErrMissingRestaurant = errors.New("restaurant id is required")
)

// Scope identifies the live channel of one view.
type Scope struct {
	RestaurantID string
	Role         domain.Role
}

// Conn is an open inbound stream. ReadFrame blocks until the next text frame
// arrives or the connection fails.
type Conn interface {
	ReadFrame(ctx context.Context) (string, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, scope Scope) (Conn, error)
}

// Session is a single connection attempt. It moves Connecting -> Connected ->
// Disconnected and never leaves Disconnected; reconnecting needs a new
// Session.
type Session struct {
	dialer  Dialer
	scope   Scope
	onState func(domain.ConnState)
	onFrame func(string)

	mu      sync.Mutex
	state   domain.ConnState
	started bool
}

func NewSession(dialer Dialer, scope Scope, onState func(domain.ConnState), onFrame func(string)) *Session {
	if onState == nil {
		onState = func(domain.ConnState) {}
	}
	if onFrame == nil {
		onFrame = func(string) {}
	}
	return &Session{
		dialer:  dialer,
		scope:   scope,
		onState: onState,
		onFrame: onFrame,
	}
}

func (s *Session) State() domain.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state domain.ConnState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.onState(state)
}

// Run dials, delivers every frame to onFrame in arrival order and returns
// when the connection ends. Cancelling ctx closes the connection and Run
// returns nil; any other ending returns the transport error.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.started = true
	s.mu.Unlock()

	if s.scope.RestaurantID == "" {
		s.setState(domain.Disconnected)
		return ErrMissingRestaurant
	}

	s.setState(domain.Connecting)
	conn, err := s.dialer.Dial(ctx, s.scope)
	if err != nil {
		s.setState(domain.Disconnected)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
		s.setState(domain.Disconnected)
	}()

	s.setState(domain.Connected)
	for {
		frame, err := conn.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.onFrame(frame)
	}
}
