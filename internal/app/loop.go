package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// DefaultPollInterval is how often the loop checks its termination policy.
const DefaultPollInterval = 100 * time.Millisecond

// LoopConfig contains configuration for the streaming loop.
type LoopConfig struct {
	// PollInterval bounds how late the loop notices a satisfied policy.
	PollInterval time.Duration

	// Reporting is written to the device before handlers are registered.
	Reporting ports.PostureReporting

	// Entity is the scene path pose updates are logged under.
	Entity string

	// DrainTimeout bounds unregister and disconnect once the run context
	// is already done.
	DrainTimeout time.Duration
}

// DefaultLoopConfig returns the stock cadence and telemetry mode.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		PollInterval: DefaultPollInterval,
		Reporting:    ports.DefaultPostureReporting(),
		Entity:       DefaultEntityPath,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Loop streams posture samples from one cube to a renderer until its
// termination policy is satisfied.
type Loop struct {
	config    LoopConfig
	transport ports.DeviceTransport
	renderer  ports.Renderer
	logger    ports.Logger
	observer  SessionObserver
}

// NewLoop creates a streaming loop with the given dependencies.
// observer may be nil.
func NewLoop(
	config LoopConfig,
	transport ports.DeviceTransport,
	renderer ports.Renderer,
	logger ports.Logger,
	observer SessionObserver,
) *Loop {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Entity == "" {
		config.Entity = DefaultEntityPath
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	return &Loop{
		config:    config,
		transport: transport,
		renderer:  renderer,
		logger:    logger,
		observer:  observer,
	}
}

// Run opens a session to the cube at locator, streams until policy is
// satisfied, and tears the session down on every exit path.
//
// It returns the number of accepted samples. The error is nil when the
// policy ended the run, wraps domain.ErrCancelled when ctx ended it, and
// wraps domain.ErrConnection, domain.ErrSetup or domain.ErrTransport on
// failure.
func (l *Loop) Run(ctx context.Context, locator string, policy TerminationPolicy) (int64, error) {
	state := &domain.TerminationState{}
	router := NewRouter(state, l.renderer, l.config.Entity, l.logger)

	session := NewSession(l.transport, l.logger, l.observer)
	session.SetDrainTimeout(l.config.DrainTimeout)
	reason := "run aborted"
	defer func() {
		dctx, cancel := drainContext(ctx, l.config.DrainTimeout)
		defer cancel()
		session.Close(dctx, reason)
	}()

	if err := session.Open(ctx, locator); err != nil {
		return 0, err
	}
	conn := session.Connection()

	err := session.Setup(ctx, l.config.Reporting,
		Registration{Channel: ports.ChannelButton, Handler: router.HandleButton},
		Registration{Channel: ports.ChannelSensor, Handler: router.HandleSensor},
	)
	if err != nil {
		return 0, err
	}

	if err := session.BeginStreaming(); err != nil {
		return 0, err
	}
	l.logger.Info("streaming",
		ports.String("policy", policy.String()),
		ports.Duration("poll_interval", l.config.PollInterval),
	)

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		if policy.Satisfied(state.Snapshot()) {
			reason = "termination policy satisfied"
			n := state.SamplesSeen()
			l.logger.Info("stopping", ports.String("reason", reason), ports.Int64("samples", n))
			return n, nil
		}

		select {
		case <-ctx.Done():
			reason = "cancelled"
			n := state.SamplesSeen()
			l.logger.Info("stopping", ports.String("reason", reason), ports.Int64("samples", n))
			return n, fmt.Errorf("%w: %w", domain.ErrCancelled, context.Cause(ctx))
		case <-conn.Done():
			reason = "transport lost"
			n := state.SamplesSeen()
			l.logger.Error("stopping", ports.String("reason", reason), ports.Err(conn.Err()))
			return n, fmt.Errorf("%w: %w", domain.ErrTransport, conn.Err())
		case <-ticker.C:
		}
	}
}
