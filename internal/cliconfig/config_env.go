package cliconfig

import "os"

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TOIOPOSE_"

// ApplyEnvConfig applies configuration from environment variables (TOIOPOSE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("device-name", env("DEVICE_NAME"), &cfg.DeviceName)
	s.setString("address", env("DEVICE_ADDRESS"), &cfg.DeviceAddress)
	s.setString("adapter", env("ADAPTER"), &cfg.Adapter)
	s.setString("report-condition", env("REPORT_CONDITION"), &cfg.ReportCondition)
	s.setString("stop", env("STOP_MODE"), &cfg.StopMode)
	s.setString("scene", env("SCENE"), &cfg.Scene)
	s.setString("entity", env("ENTITY"), &cfg.Entity)
	s.setString("mat-image", env("MAT_IMAGE"), &cfg.MatImage)
	s.setString("ws-addr", env("WS_ADDR"), &cfg.WSAddr)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-client-id", env("MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("mqtt-topic-prefix", env("MQTT_TOPIC_PREFIX"), &cfg.MQTTTopicPrefix)

	if err := s.setDuration("scan-timeout", env("SCAN_TIMEOUT"), &cfg.ScanTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("TIMEOUT"), &cfg.Timeout); err != nil {
		return err
	}

	if err := s.setIntFromString("report-interval", env("REPORT_INTERVAL"), &cfg.ReportInterval); err != nil {
		return err
	}
	if err := s.setIntFromString("count", env("SAMPLE_COUNT"), &cfg.SampleCount); err != nil {
		return err
	}

	s.setBoolFromString("watch-asset", env("WATCH_ASSET"), &cfg.WatchAsset)
	s.setBoolFromString("dry-run", env("DRY_RUN"), &cfg.DryRun)

	return nil
}
