package app

import (
	"fmt"
	"strings"

	"github.com/bft-labs/toiopose/internal/domain"
)

// Termination policy names accepted by ParsePolicy.
const (
	StopOnButton = "button"
	StopOnCount  = "count"
)

// TerminationPolicy decides when the streaming loop stops.
// Satisfied must be a pure function of the snapshot.
type TerminationPolicy interface {
	Satisfied(s domain.TerminationSnapshot) bool
	String() string
}

// ButtonGated stops once the cube's button has been pressed.
type ButtonGated struct{}

func (ButtonGated) Satisfied(s domain.TerminationSnapshot) bool { return s.ButtonPressed }

func (ButtonGated) String() string { return StopOnButton }

// CountGated stops once N sensor samples have been accepted.
type CountGated struct {
	N int64
}

func (c CountGated) Satisfied(s domain.TerminationSnapshot) bool { return s.SamplesSeen >= c.N }

func (c CountGated) String() string { return fmt.Sprintf("%s(%d)", StopOnCount, c.N) }

// ParsePolicy builds a policy from its configuration name.
func ParsePolicy(mode string, count int64) (TerminationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", StopOnButton:
		return ButtonGated{}, nil
	case StopOnCount:
		if count <= 0 {
			return nil, fmt.Errorf("%w: count policy needs a positive sample count, got %d", domain.ErrInvalidConfig, count)
		}
		return CountGated{N: count}, nil
	default:
		return nil, fmt.Errorf("%w: unknown stop mode %q", domain.ErrInvalidConfig, mode)
	}
}
