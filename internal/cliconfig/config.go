package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

// Stop modes accepted by Config.StopMode.
const (
	StopModeButton = "button"
	StopModeCount  = "count"
)

// Report conditions accepted by Config.ReportCondition.
const (
	ReportAlways   = "always"
	ReportOnChange = "on-change"
)

// Config holds CLI configuration for toiopose.
type Config struct {
	// AssetPath is the cube model file; it comes from the positional
	// argument and is not read from files or env.
	AssetPath string

	DeviceName    string
	DeviceAddress string
	Adapter       string
	ScanTimeout   time.Duration
	DryRun        bool

	PollInterval    time.Duration
	ReportInterval  int
	ReportCondition string
	StopMode        string
	SampleCount     int
	Timeout         time.Duration

	Scene      string
	Entity     string
	MatImage   string
	WatchAsset bool

	WSAddr          string
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DeviceName:      DefaultDeviceName,
		Adapter:         "hci0",
		ScanTimeout:     10 * time.Second,
		PollInterval:    100 * time.Millisecond,
		ReportInterval:  50, // 500ms in 10ms device units
		ReportCondition: ReportAlways,
		StopMode:        StopModeButton,
		Scene:           "toio_posture_viewer",
		Entity:          "world/toio",
		MQTTClientID:    "toiopose",
		MQTTTopicPrefix: "toio",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return invalid("poll interval must be positive")
	}
	if c.ScanTimeout <= 0 {
		return invalid("scan timeout must be positive")
	}
	if c.Timeout < 0 {
		return invalid("timeout must not be negative")
	}
	if c.ReportInterval < 1 || c.ReportInterval > 255 {
		return invalid("report interval must be within 1..255, got %d", c.ReportInterval)
	}
	if _, err := parseReportCondition(c.ReportCondition); err != nil {
		return err
	}

	c.StopMode = strings.ToLower(strings.TrimSpace(c.StopMode))
	switch c.StopMode {
	case "":
		c.StopMode = StopModeButton
	case StopModeButton:
	case StopModeCount:
		if c.SampleCount <= 0 {
			return invalid("count stop mode needs a positive sample count")
		}
	default:
		return invalid("unknown stop mode %q", c.StopMode)
	}

	if c.Entity == "" {
		return invalid("entity path must not be empty")
	}
	return nil
}

// DefaultDeviceName is the name toio cubes advertise.
const DefaultDeviceName = toio.DefaultLocalName

// Locator returns the device address if set, else a non-default device
// name. Empty means the first cube advertising the toio service.
func (c *Config) Locator() string {
	if c.DeviceAddress != "" {
		return c.DeviceAddress
	}
	if c.DeviceName != DefaultDeviceName {
		return c.DeviceName
	}
	return ""
}

// Reporting returns the posture telemetry mode written to the cube.
func (c *Config) Reporting() (ports.PostureReporting, error) {
	cond, err := parseReportCondition(c.ReportCondition)
	if err != nil {
		return ports.PostureReporting{}, err
	}
	return ports.PostureReporting{
		Mode:      ports.PostureQuaternion,
		Interval:  uint8(c.ReportInterval),
		Condition: cond,
	}, nil
}

func parseReportCondition(s string) (ports.ReportCondition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ReportAlways:
		return ports.ReportAlways, nil
	case ReportOnChange, "onchange", "change":
		return ports.ReportOnChange, nil
	default:
		return 0, invalid("unknown report condition %q", s)
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
