package domain

import "sync/atomic"

// TerminationState holds the signals the streaming loop stops on.
//
// Each field has exactly one writer: the button handler sets the pressed
// flag, the sensor handler counts samples. The poll loop only reads.
type TerminationState struct {
	buttonPressed atomic.Bool
	samplesSeen   atomic.Int64
}

// TerminationSnapshot is a point-in-time copy of TerminationState.
type TerminationSnapshot struct {
	ButtonPressed bool
	SamplesSeen   int64
}

// MarkPressed records a button press. It reports true only for the call
// that changed the flag.
func (s *TerminationState) MarkPressed() bool {
	return s.buttonPressed.CompareAndSwap(false, true)
}

// AddSample counts one accepted sensor sample and returns the new total.
func (s *TerminationState) AddSample() int64 {
	return s.samplesSeen.Add(1)
}

// ButtonPressed reports whether the button has been pressed.
func (s *TerminationState) ButtonPressed() bool {
	return s.buttonPressed.Load()
}

// SamplesSeen returns the number of accepted sensor samples.
func (s *TerminationState) SamplesSeen() int64 {
	return s.samplesSeen.Load()
}

// Snapshot copies the current state.
func (s *TerminationState) Snapshot() TerminationSnapshot {
	return TerminationSnapshot{
		ButtonPressed: s.buttonPressed.Load(),
		SamplesSeen:   s.samplesSeen.Load(),
	}
}
