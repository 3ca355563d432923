package ports

import (
	"context"
	"fmt"
)

// Channel identifies a notification source on the device.
type Channel int

const (
	ChannelButton Channel = iota + 1
	ChannelSensor
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelButton:
		return "button"
	case ChannelSensor:
		return "sensor"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// PostureMode selects the posture representation the device reports.
type PostureMode uint8

const (
	PostureEuler PostureMode = iota + 1
	PostureQuaternion
	PostureHighPrecisionEuler
)

// ReportCondition selects when the device emits posture notifications.
type ReportCondition uint8

const (
	// ReportAlways emits on every interval.
	ReportAlways ReportCondition = iota
	// ReportOnChange emits only when the posture changed.
	ReportOnChange
)

// PostureReporting is the telemetry mode written to the device before
// handlers are registered.
type PostureReporting struct {
	Mode PostureMode

	// Interval is in device time units (10 ms on a toio cube).
	Interval uint8

	Condition ReportCondition
}

// DefaultPostureReporting returns quaternion reporting every 50 units,
// always.
func DefaultPostureReporting() PostureReporting {
	return PostureReporting{
		Mode:      PostureQuaternion,
		Interval:  50,
		Condition: ReportAlways,
	}
}

// NotificationFunc receives raw payloads for one channel. Implementations
// may call it from their own goroutine; calls for one channel are
// sequential and in arrival order.
type NotificationFunc func(payload []byte)

// Handle identifies one registered notification handler.
type Handle struct {
	Channel Channel
	ID      uint64
}

// DeviceTransport reaches a device and opens a connection to it.
type DeviceTransport interface {
	// Connect establishes a connection to the device named by locator
	// (an address or an advertised name; empty selects the first match).
	Connect(ctx context.Context, locator string) (Connection, error)
}

// Connection is an established link to one device.
type Connection interface {
	// ConfigurePostureReporting sets the device's posture telemetry mode.
	ConfigurePostureReporting(ctx context.Context, r PostureReporting) error

	// Register subscribes fn to notifications on ch.
	Register(ctx context.Context, ch Channel, fn NotificationFunc) (Handle, error)

	// Unregister removes a handler added by Register.
	Unregister(ctx context.Context, h Handle) error

	// Disconnect releases the link. It is called exactly once.
	Disconnect(ctx context.Context) error

	// Done is closed when the link is lost without Disconnect being called.
	Done() <-chan struct{}

	// Err explains why Done was closed.
	Err() error
}
