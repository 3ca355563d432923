package toio

import "github.com/bft-labs/toiopose/internal/domain"

const (
	buttonFunctionID   = 0x01
	buttonStatePress   = 0x80
	buttonStateRelease = 0x00
)

// DecodeButton interprets a button characteristic payload.
// ok is false when p is not a button information record.
func DecodeButton(p []byte) (ev domain.ButtonEvent, ok bool) {
	if len(p) != 2 || p[0] != buttonFunctionID {
		return domain.ButtonUnknown, false
	}
	switch p[1] {
	case buttonStatePress:
		return domain.ButtonPressed, true
	case buttonStateRelease:
		return domain.ButtonReleased, true
	default:
		return domain.ButtonUnknown, true
	}
}

// EncodeButton builds a button information record.
func EncodeButton(ev domain.ButtonEvent) []byte {
	state := byte(buttonStateRelease)
	if ev == domain.ButtonPressed {
		state = buttonStatePress
	}
	return []byte{buttonFunctionID, state}
}
