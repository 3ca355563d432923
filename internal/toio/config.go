package toio

import (
	"fmt"

	"github.com/bft-labs/toiopose/internal/ports"
)

const (
	configPostureDetection         = 0x1d
	configPostureDetectionResponse = 0x9d
	configReserved                 = 0x00
)

// EncodePostureDetection builds the command that selects posture-angle
// reporting on the configuration characteristic.
func EncodePostureDetection(r ports.PostureReporting) ([]byte, error) {
	var kind byte
	switch r.Mode {
	case ports.PostureEuler:
		kind = postureTypeEuler
	case ports.PostureQuaternion:
		kind = postureTypeQuaternion
	case ports.PostureHighPrecisionEuler:
		kind = postureTypeHighPrecisionEuler
	default:
		return nil, fmt.Errorf("unsupported posture mode %d", r.Mode)
	}
	var cond byte
	switch r.Condition {
	case ports.ReportAlways:
		cond = 0x00
	case ports.ReportOnChange:
		cond = 0x01
	default:
		return nil, fmt.Errorf("unsupported report condition %d", r.Condition)
	}
	return []byte{configPostureDetection, configReserved, kind, r.Interval, cond}, nil
}

// DecodePostureDetectionResponse interprets the configuration
// characteristic's reply to EncodePostureDetection. ok is false when p is
// not such a reply; accepted reports the cube's verdict.
func DecodePostureDetectionResponse(p []byte) (accepted, ok bool) {
	if len(p) != 3 || p[0] != configPostureDetectionResponse {
		return false, false
	}
	return p[2] == 0x00, true
}
