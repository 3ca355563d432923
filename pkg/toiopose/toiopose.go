package toiopose

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bft-labs/toiopose/internal/adapters/ble"
	logAdapter "github.com/bft-labs/toiopose/internal/adapters/log"
	"github.com/bft-labs/toiopose/internal/app"
	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// Errors returned by Run. Test with errors.Is.
var (
	ErrConnection    = domain.ErrConnection
	ErrSetup         = domain.ErrSetup
	ErrTransport     = domain.ErrTransport
	ErrCancelled     = domain.ErrCancelled
	ErrInvalidConfig = domain.ErrInvalidConfig
	ErrAlreadyRun    = errors.New("toiopose instance already ran")
)

// Defaults applied by Config.SetDefaults.
const (
	DefaultSceneName    = app.DefaultSceneName
	DefaultEntityPath   = app.DefaultEntityPath
	DefaultPollInterval = app.DefaultPollInterval
)

// Config holds the settings of one streaming run.
type Config struct {
	// Locator selects the cube: a MAC address, an advertised name, or empty
	// for the first cube found.
	Locator string

	// AssetPath is the cube's 3D model file. Required.
	AssetPath string

	Scene    string
	Entity   string
	MatImage string

	PollInterval time.Duration
	Reporting    PostureReporting

	// StopMode is "button" (default) or "count".
	StopMode    string
	SampleCount int64

	// Timeout bounds the whole run. Zero means none.
	Timeout time.Duration
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Scene == "" {
		c.Scene = DefaultSceneName
	}
	if c.Entity == "" {
		c.Entity = DefaultEntityPath
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Reporting.Mode == 0 {
		c.Reporting = ports.DefaultPostureReporting()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.AssetPath == "" {
		return fmt.Errorf("%w: asset path is required", domain.ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", domain.ErrInvalidConfig)
	}
	_, err := app.ParsePolicy(c.StopMode, c.SampleCount)
	return err
}

// Result summarizes a finished run.
type Result struct {
	// Samples is the number of posture samples accepted.
	Samples int64
}

// Toiopose runs one streaming session. It is single-use.
type Toiopose struct {
	config    Config
	opts      options
	policy    app.TerminationPolicy
	logger    ports.Logger
	transport ports.DeviceTransport
	renderer  ports.Renderer
	plugins   []Plugin
	ran       atomic.Bool
}

// New creates an instance with the given configuration.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Toiopose, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := app.ParsePolicy(cfg.StopMode, cfg.SampleCount)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger = logAdapter.NewNoopLogger()
	if o.logger != nil {
		logger = o.logger
	}

	transport := o.transport
	if transport == nil {
		transport = ble.NewTransport(ble.DefaultConfig(), logger)
	}

	var renderer ports.Renderer
	switch len(o.renderers) {
	case 0:
		renderer = logAdapter.NewRenderer(logger)
	case 1:
		renderer = o.renderers[0]
	default:
		renderer = app.MultiRenderer(o.renderers)
	}

	return &Toiopose{
		config:    cfg,
		opts:      o,
		policy:    policy,
		logger:    logger,
		transport: transport,
		renderer:  renderer,
		plugins:   o.plugins,
	}, nil
}

// Run draws the scene, streams posture until the stop condition, and tears
// everything down. The error is nil when the stop condition ended the run.
func (t *Toiopose) Run(ctx context.Context) (Result, error) {
	if !t.ran.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}

	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	defer func() {
		if err := t.renderer.Close(); err != nil {
			t.logger.Warn("renderer close failed", ports.Err(err))
		}
	}()

	err := app.SetupScene(ctx, t.renderer, app.SceneConfig{
		Name:      t.config.Scene,
		Entity:    t.config.Entity,
		AssetPath: t.config.AssetPath,
		MatImage:  t.config.MatImage,
	}, t.logger)
	if err != nil {
		return Result{}, fmt.Errorf("scene setup: %w", err)
	}

	initialized, err := t.initPlugins(ctx)
	defer t.shutdownPlugins(initialized)
	if err != nil {
		return Result{}, err
	}

	loop := app.NewLoop(app.LoopConfig{
		PollInterval: t.config.PollInterval,
		Reporting:    t.config.Reporting,
		Entity:       t.config.Entity,
	}, t.transport, t.renderer, t.logger, t.observer())

	n, err := loop.Run(ctx, t.config.Locator, t.policy)
	return Result{Samples: n}, err
}

// initPlugins initializes plugins in order and returns those that
// succeeded.
func (t *Toiopose) initPlugins(ctx context.Context) ([]Plugin, error) {
	pluginCfg := PluginConfig{
		AssetPath: t.config.AssetPath,
		Scene:     t.config.Scene,
		Entity:    t.config.Entity,
		Renderer:  t.renderer,
		Logger:    t.logger,
	}
	var done []Plugin
	for _, p := range t.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			t.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			return done, fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		t.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
		done = append(done, p)
	}
	return done, nil
}

// shutdownPlugins shuts plugins down in reverse order.
func (t *Toiopose) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			t.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		t.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

func (t *Toiopose) observer() app.SessionObserver {
	if t.opts.eventHandler == nil {
		return nil
	}
	return eventEmitterWrapper{handler: t.opts.eventHandler}
}

// eventEmitterWrapper adapts EventHandler to app.SessionObserver.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e eventEmitterWrapper) OnSessionState(previous, current app.SessionState, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
