package domain

import "fmt"

// PostureQuaternionSample is one orientation reading reported by the cube.
// The components describe a unit quaternion; arrival order is the only
// ordering signal, there is no timestamp.
type PostureQuaternionSample struct {
	X float64
	Y float64
	Z float64
	W float64
}

// String formats the sample the way it is logged.
func (s PostureQuaternionSample) String() string {
	return fmt.Sprintf("x:%f y:%f z:%f w:%f", s.X, s.Y, s.Z, s.W)
}

// EulerAngles is a posture reading in degrees. The cube reports it when
// posture detection is configured for Euler angles instead of quaternions.
type EulerAngles struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// ButtonEvent is the decoded state carried by a button notification.
type ButtonEvent int

const (
	ButtonUnknown ButtonEvent = iota
	ButtonReleased
	ButtonPressed
)

// String returns the button state name.
func (b ButtonEvent) String() string {
	switch b {
	case ButtonReleased:
		return "RELEASED"
	case ButtonPressed:
		return "PRESSED"
	default:
		return "UNKNOWN"
	}
}
