package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				DeviceAddress:  "AA:BB:CC:DD:EE:FF",
				PollInterval:   "50ms",
				ReportInterval: 10,
				StopMode:       "count",
				SampleCount:    200,
				WatchAsset:     &trueVal,
				MQTTBroker:     "tcp://broker:1883",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				DeviceAddress:  "AA:BB:CC:DD:EE:FF",
				PollInterval:   50 * time.Millisecond,
				ReportInterval: 10,
				StopMode:       "count",
				SampleCount:    200,
				WatchAsset:     true,
				MQTTBroker:     "tcp://broker:1883",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				DeviceName: "file-cube",
				Scene:      "file-scene",
			},
			changed: map[string]bool{"device-name": true},
			initial: Config{
				DeviceName: "flag-cube",
				Scene:      "default-scene",
			},
			expected: Config{
				DeviceName: "flag-cube", // unchanged because flag was set
				Scene:      "file-scene",
			},
		},
		{
			name: "ignores zero values",
			fileConfig: FileConfig{
				ReportInterval: 0,
				SampleCount:    -1,
			},
			changed:  map[string]bool{},
			initial:  Config{ReportInterval: 50, SampleCount: 3},
			expected: Config{ReportInterval: 50, SampleCount: 3},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{PollInterval: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
device_address = "AA:BB:CC:DD:EE:FF"
poll_interval = "50ms"
report_interval = 10
stop_mode = "count"
sample_count = 200
watch_asset = true
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
device_address: "AA:BB:CC:DD:EE:FF"
poll_interval: 50ms
report_interval: 10
stop_mode: count
sample_count: 200
watch_asset: true
`,
		},
		{
			name:    "yml extension",
			file:    "config.yml",
			content: "device_address: AA:BB:CC:DD:EE:FF\npoll_interval: 50ms\nreport_interval: 10\nstop_mode: count\nsample_count: 200\nwatch_asset: true\n",
		},
		{
			name:    "invalid toml",
			file:    "broken.toml",
			content: "poll_interval = ",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			file:    "broken.yaml",
			content: "poll_interval: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(strings.TrimSpace(tt.content)), 0o600); err != nil {
				t.Fatal(err)
			}

			fc, err := LoadFileConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if fc.DeviceAddress != "AA:BB:CC:DD:EE:FF" || fc.PollInterval != "50ms" ||
				fc.ReportInterval != 10 || fc.StopMode != "count" || fc.SampleCount != 200 {
				t.Errorf("LoadFileConfig() = %+v", fc)
			}
			if fc.WatchAsset == nil || !*fc.WatchAsset {
				t.Error("watch_asset not loaded")
			}
		})
	}
}

func TestLoadFileConfig_Missing(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml")); !os.IsNotExist(err) {
		t.Errorf("error = %v, want not-exist", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	want := filepath.Join(home, ".toiopose", "config.toml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if FileExists(path) {
		t.Error("FileExists() true for missing file")
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() false for existing file")
	}
}
