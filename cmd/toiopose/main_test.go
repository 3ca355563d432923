package main

import (
	"testing"
	"time"

	"github.com/bft-labs/toiopose/internal/cliconfig"
)

func TestSimConfig(t *testing.T) {
	tests := []struct {
		name       string
		stop       string
		pressAfter time.Duration
		wantPress  time.Duration
	}{
		{"button stop presses by default", cliconfig.StopModeButton, defaultSimPressAfter, defaultSimPressAfter},
		{"button stop never pressed", cliconfig.StopModeButton, 0, 0},
		{"count stop ignores press", cliconfig.StopModeCount, defaultSimPressAfter, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cliconfig.DefaultConfig()
			cfg.StopMode = tt.stop
			got := simConfig(cfg, tt.pressAfter, 7)
			if got.PressAfter != tt.wantPress {
				t.Errorf("PressAfter = %v, want %v", got.PressAfter, tt.wantPress)
			}
			if got.MotionEvery != 7 {
				t.Errorf("MotionEvery = %d, want 7", got.MotionEvery)
			}
		})
	}
}

func TestDefaultSimPressAfterIsPositive(t *testing.T) {
	if defaultSimPressAfter <= 0 {
		t.Fatal("a button-gated dry run would never stop")
	}
}
