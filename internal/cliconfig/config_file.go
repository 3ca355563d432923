package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// and YAML friendly.
type FileConfig struct {
	DeviceName      string `toml:"device_name" yaml:"device_name"`
	DeviceAddress   string `toml:"device_address" yaml:"device_address"`
	Adapter         string `toml:"adapter" yaml:"adapter"`
	ScanTimeout     string `toml:"scan_timeout" yaml:"scan_timeout"`
	PollInterval    string `toml:"poll_interval" yaml:"poll_interval"`
	ReportInterval  int    `toml:"report_interval" yaml:"report_interval"`
	ReportCondition string `toml:"report_condition" yaml:"report_condition"`
	StopMode        string `toml:"stop_mode" yaml:"stop_mode"`
	SampleCount     int    `toml:"sample_count" yaml:"sample_count"`
	Timeout         string `toml:"timeout" yaml:"timeout"`
	Scene           string `toml:"scene" yaml:"scene"`
	Entity          string `toml:"entity" yaml:"entity"`
	MatImage        string `toml:"mat_image" yaml:"mat_image"`
	WatchAsset      *bool  `toml:"watch_asset" yaml:"watch_asset"`
	WSAddr          string `toml:"ws_addr" yaml:"ws_addr"`
	MQTTBroker      string `toml:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTClientID    string `toml:"mqtt_client_id" yaml:"mqtt_client_id"`
	MQTTTopicPrefix string `toml:"mqtt_topic_prefix" yaml:"mqtt_topic_prefix"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.toiopose/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".toiopose", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device-name", fc.DeviceName, &cfg.DeviceName)
	s.setString("address", fc.DeviceAddress, &cfg.DeviceAddress)
	s.setString("adapter", fc.Adapter, &cfg.Adapter)
	s.setString("report-condition", fc.ReportCondition, &cfg.ReportCondition)
	s.setString("stop", fc.StopMode, &cfg.StopMode)
	s.setString("scene", fc.Scene, &cfg.Scene)
	s.setString("entity", fc.Entity, &cfg.Entity)
	s.setString("mat-image", fc.MatImage, &cfg.MatImage)
	s.setString("ws-addr", fc.WSAddr, &cfg.WSAddr)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)
	s.setString("mqtt-topic-prefix", fc.MQTTTopicPrefix, &cfg.MQTTTopicPrefix)

	if err := s.setDuration("scan-timeout", fc.ScanTimeout, &cfg.ScanTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	s.setInt("report-interval", fc.ReportInterval, &cfg.ReportInterval)
	s.setInt("count", fc.SampleCount, &cfg.SampleCount)

	s.setBool("watch-asset", fc.WatchAsset, &cfg.WatchAsset)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
