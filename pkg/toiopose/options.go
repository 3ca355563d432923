package toiopose

import (
	"github.com/bft-labs/toiopose/internal/app"
	"github.com/bft-labs/toiopose/internal/ports"
)

// Re-exported port types for implementing custom components.
type (
	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field

	// DeviceTransport reaches a cube.
	DeviceTransport = ports.DeviceTransport

	// Renderer receives scene records.
	Renderer = ports.Renderer

	// PostureReporting is the telemetry mode written to the cube.
	PostureReporting = ports.PostureReporting

	// State is a connection session state.
	State = app.SessionState
)

// Posture telemetry settings for Config.Reporting.
const (
	PostureQuaternion = ports.PostureQuaternion
	ReportAlways      = ports.ReportAlways
	ReportOnChange    = ports.ReportOnChange
)

// Session states reported to EventHandler.
const (
	StateUnopened           = app.SessionUnopened
	StateOpen               = app.SessionOpen
	StateConfiguring        = app.SessionConfiguring
	StateHandlersRegistered = app.SessionHandlersRegistered
	StateStreaming          = app.SessionStreaming
	StateDraining           = app.SessionDraining
	StateClosed             = app.SessionClosed
)

// StateChangeEvent describes one session state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives session state transitions. Calls are synchronous
// with the session, so implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// Option configures optional behavior of Toiopose.
type Option func(*options)

// options holds the optional configuration for a Toiopose instance.
type options struct {
	logger       ports.Logger
	transport    ports.DeviceTransport
	renderers    []ports.Renderer
	eventHandler EventHandler
	plugins      []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport sets the device transport.
// If not provided, the Bluetooth LE transport with default settings is used.
func WithTransport(transport DeviceTransport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithRenderer adds a renderer. Several renderers receive every record.
// If none is provided, records are written to the logger.
func WithRenderer(renderer Renderer) Option {
	return func(o *options) {
		o.renderers = append(o.renderers, renderer)
	}
}

// WithEventHandler sets a handler for session state transitions.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Run starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
