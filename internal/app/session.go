package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// SessionState is the lifecycle state of a device connection session.
type SessionState int

const (
	SessionUnopened SessionState = iota
	SessionOpen
	SessionConfiguring
	SessionHandlersRegistered
	SessionStreaming
	SessionDraining
	SessionClosed
)

// String returns a human-readable representation of the state.
func (s SessionState) String() string {
	switch s {
	case SessionUnopened:
		return "Unopened"
	case SessionOpen:
		return "Open"
	case SessionConfiguring:
		return "Configuring"
	case SessionHandlersRegistered:
		return "HandlersRegistered"
	case SessionStreaming:
		return "Streaming"
	case SessionDraining:
		return "Draining"
	case SessionClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// DefaultDrainTimeout bounds teardown once the caller's context is done.
const DefaultDrainTimeout = 5 * time.Second

// SessionObserver is called on every session state change.
type SessionObserver interface {
	OnSessionState(previous, current SessionState, reason string)
}

// Registration pairs a channel with the handler to subscribe to it.
type Registration struct {
	Channel ports.Channel
	Handler ports.NotificationFunc
}

// Session owns one device connection and the handlers registered on it.
// It is single-use: once Closed it cannot be reopened.
//
// Close drains handlers in reverse registration order before disconnecting,
// and is safe to defer right after NewSession.
type Session struct {
	transport ports.DeviceTransport
	logger    ports.Logger
	observer  SessionObserver

	drainTimeout time.Duration

	mu      sync.Mutex
	state   SessionState
	conn    ports.Connection
	handles []ports.Handle
}

// NewSession creates an unopened session.
func NewSession(transport ports.DeviceTransport, logger ports.Logger, observer SessionObserver) *Session {
	return &Session{
		transport:    transport,
		logger:       logger,
		observer:     observer,
		drainTimeout: DefaultDrainTimeout,
		state:        SessionUnopened,
	}
}

// SetDrainTimeout bounds unregister and disconnect when they run on an
// already cancelled context.
func (s *Session) SetDrainTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.drainTimeout = d
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connection returns the open connection, or nil before Open succeeds.
func (s *Session) Connection() ports.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Open connects to the device named by locator.
func (s *Session) Open(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionUnopened {
		return domain.ErrSessionUsed
	}

	conn, err := s.transport.Connect(ctx, locator)
	if err != nil {
		_ = s.transitionTo(SessionClosed, "connect failed")
		return fmt.Errorf("%w: %s: %w", domain.ErrConnection, locatorName(locator), err)
	}
	s.conn = conn
	return s.transitionTo(SessionOpen, "connected")
}

// Setup writes the telemetry mode and then registers regs in order.
// On failure everything registered so far is drained, the connection is
// released, and the returned error wraps domain.ErrSetup.
func (s *Session) Setup(ctx context.Context, reporting ports.PostureReporting, regs ...Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionTo(SessionConfiguring, "configuring posture reporting"); err != nil {
		return err
	}

	if err := s.conn.ConfigurePostureReporting(ctx, reporting); err != nil {
		s.drainOnFailure(ctx, "configure failed")
		return fmt.Errorf("%w: configure posture reporting: %w", domain.ErrSetup, err)
	}

	for _, reg := range regs {
		h, err := s.conn.Register(ctx, reg.Channel, reg.Handler)
		if err != nil {
			s.drainOnFailure(ctx, "register failed")
			return fmt.Errorf("%w: register %s handler: %w", domain.ErrSetup, reg.Channel, err)
		}
		s.handles = append(s.handles, h)
		s.logger.Debug("handler registered", ports.String("channel", reg.Channel.String()))
	}

	return s.transitionTo(SessionHandlersRegistered, "handlers registered")
}

// BeginStreaming marks the start of the polling phase.
func (s *Session) BeginStreaming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionTo(SessionStreaming, "streaming")
}

// Close drains and releases the session. It may be called in any state and
// more than once; only the first call does work.
func (s *Session) Close(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SessionClosed, SessionDraining:
		return
	case SessionUnopened:
		_ = s.transitionTo(SessionClosed, reason)
		return
	}
	s.drainLocked(ctx, reason)
}

// drainOnFailure drains after a setup error, which may itself have come
// from ctx being cancelled. Caller holds s.mu.
func (s *Session) drainOnFailure(ctx context.Context, reason string) {
	dctx, cancel := drainContext(ctx, s.drainTimeout)
	defer cancel()
	s.drainLocked(dctx, reason)
}

// drainContext keeps teardown possible after ctx is cancelled.
func drainContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// drainLocked unregisters handlers newest first, then disconnects.
// Failures are logged and swallowed. Caller holds s.mu.
func (s *Session) drainLocked(ctx context.Context, reason string) {
	_ = s.transitionTo(SessionDraining, reason)

	for i := len(s.handles) - 1; i >= 0; i-- {
		h := s.handles[i]
		if err := s.conn.Unregister(ctx, h); err != nil {
			s.logger.Warn("unregister warning",
				ports.String("channel", h.Channel.String()),
				ports.Err(err),
			)
			continue
		}
		s.logger.Debug("handler unregistered", ports.String("channel", h.Channel.String()))
	}
	s.handles = nil

	s.logger.Info("disconnecting")
	if err := s.conn.Disconnect(ctx); err != nil {
		s.logger.Warn("disconnect warning", ports.Err(err))
	}
	_ = s.transitionTo(SessionClosed, reason)
	s.logger.Info("disconnected")
}

// transitionTo validates and applies a state change. Caller holds s.mu.
func (s *Session) transitionTo(next SessionState, reason string) error {
	prev := s.state
	if !validSessionTransition(prev, next) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, prev, next)
	}
	s.state = next

	if s.observer != nil {
		s.observer.OnSessionState(prev, next, reason)
	}
	s.logger.Debug("session transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func validSessionTransition(from, to SessionState) bool {
	switch from {
	case SessionUnopened:
		return to == SessionOpen || to == SessionClosed
	case SessionOpen:
		return to == SessionConfiguring || to == SessionDraining
	case SessionConfiguring:
		return to == SessionHandlersRegistered || to == SessionDraining
	case SessionHandlersRegistered:
		return to == SessionStreaming || to == SessionDraining
	case SessionStreaming:
		return to == SessionDraining
	case SessionDraining:
		return to == SessionClosed
	default:
		return false
	}
}

func locatorName(locator string) string {
	if locator == "" {
		return "first available cube"
	}
	return locator
}
