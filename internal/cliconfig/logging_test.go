package cliconfig

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		verbose, quiet bool
		want           zerolog.Level
	}{
		{false, false, zerolog.InfoLevel},
		{true, false, zerolog.DebugLevel},
		{false, true, zerolog.WarnLevel},
		{true, true, zerolog.WarnLevel},
	}
	for _, tt := range tests {
		if got := LogLevel(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("LogLevel(%v, %v) = %v, want %v", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, zerolog.InfoLevel)

	log.Debug().Msg("posture sample")
	log.Info().Str("address", "AA:BB").Msg("connecting")

	out := buf.String()
	if strings.Contains(out, "posture sample") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "connecting") || !strings.Contains(out, "address=") {
		t.Errorf("info line missing: %q", out)
	}
}
