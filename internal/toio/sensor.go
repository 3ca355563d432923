package toio

import (
	"encoding/binary"
	"math"

	"github.com/bft-labs/toiopose/internal/domain"
)

// SensorKind tags a decoded sensor characteristic payload.
type SensorKind int

const (
	SensorUnrecognized SensorKind = iota
	SensorMotion
	SensorMagnetic
	SensorPostureEuler
	SensorPostureQuaternion
	SensorPostureHighPrecisionEuler
)

// String returns the kind name.
func (k SensorKind) String() string {
	switch k {
	case SensorMotion:
		return "motion"
	case SensorMagnetic:
		return "magnetic"
	case SensorPostureEuler:
		return "posture_euler"
	case SensorPostureQuaternion:
		return "posture_quaternion"
	case SensorPostureHighPrecisionEuler:
		return "posture_high_precision_euler"
	default:
		return "unrecognized"
	}
}

const (
	sensorMotionID   = 0x01
	sensorMagneticID = 0x02
	sensorPostureID  = 0x03

	postureTypeEuler              = 0x01
	postureTypeQuaternion         = 0x02
	postureTypeHighPrecisionEuler = 0x03
)

// Payload lengths on the wire.
const (
	motionLen            = 6
	magneticLen          = 9
	postureEulerLen      = 8
	postureQuaternionLen = 18
	postureHighPrecLen   = 14
)

// SensorReading is the result of DecodeSensor. Only the field matching Kind
// is populated.
type SensorReading struct {
	Kind       SensorKind
	Quaternion domain.PostureQuaternionSample
	Euler      domain.EulerAngles
	Motion     MotionInfo
}

// MotionInfo is the motion detection record.
type MotionInfo struct {
	Horizontal bool
	Collision  bool
	DoubleTap  bool
	Posture    uint8
	Shake      uint8
}

// DecodeSensor interprets a sensor characteristic payload.
func DecodeSensor(p []byte) SensorReading {
	if len(p) == 0 {
		return SensorReading{}
	}
	switch p[0] {
	case sensorMotionID:
		if len(p) < motionLen {
			return SensorReading{}
		}
		return SensorReading{
			Kind: SensorMotion,
			Motion: MotionInfo{
				Horizontal: p[1] == 0x01,
				Collision:  p[2] == 0x01,
				DoubleTap:  p[3] == 0x01,
				Posture:    p[4],
				Shake:      p[5],
			},
		}
	case sensorMagneticID:
		if len(p) < magneticLen {
			return SensorReading{}
		}
		return SensorReading{Kind: SensorMagnetic}
	case sensorPostureID:
		return decodePosture(p)
	}
	return SensorReading{}
}

func decodePosture(p []byte) SensorReading {
	if len(p) < 2 {
		return SensorReading{}
	}
	switch p[1] {
	case postureTypeEuler:
		if len(p) != postureEulerLen {
			return SensorReading{}
		}
		return SensorReading{
			Kind: SensorPostureEuler,
			Euler: domain.EulerAngles{
				Roll:  float64(int16(binary.LittleEndian.Uint16(p[2:]))),
				Pitch: float64(int16(binary.LittleEndian.Uint16(p[4:]))),
				Yaw:   float64(int16(binary.LittleEndian.Uint16(p[6:]))),
			},
		}
	case postureTypeQuaternion:
		if len(p) != postureQuaternionLen {
			return SensorReading{}
		}
		// Wire order is w, x, y, z.
		return SensorReading{
			Kind: SensorPostureQuaternion,
			Quaternion: domain.PostureQuaternionSample{
				W: float32At(p, 2),
				X: float32At(p, 6),
				Y: float32At(p, 10),
				Z: float32At(p, 14),
			},
		}
	case postureTypeHighPrecisionEuler:
		if len(p) != postureHighPrecLen {
			return SensorReading{}
		}
		return SensorReading{
			Kind: SensorPostureHighPrecisionEuler,
			Euler: domain.EulerAngles{
				Roll:  float32At(p, 2),
				Pitch: float32At(p, 6),
				Yaw:   float32At(p, 10),
			},
		}
	}
	return SensorReading{}
}

// DecodeQuaternion is DecodeSensor narrowed to quaternion posture records.
func DecodeQuaternion(p []byte) (domain.PostureQuaternionSample, bool) {
	r := DecodeSensor(p)
	if r.Kind != SensorPostureQuaternion {
		return domain.PostureQuaternionSample{}, false
	}
	return r.Quaternion, true
}

// EncodeQuaternion builds a quaternion posture record.
func EncodeQuaternion(s domain.PostureQuaternionSample) []byte {
	p := make([]byte, postureQuaternionLen)
	p[0] = sensorPostureID
	p[1] = postureTypeQuaternion
	putFloat32(p, 2, s.W)
	putFloat32(p, 6, s.X)
	putFloat32(p, 10, s.Y)
	putFloat32(p, 14, s.Z)
	return p
}

// EncodeEuler builds an Euler posture record. Angles are truncated to
// whole degrees.
func EncodeEuler(e domain.EulerAngles) []byte {
	p := make([]byte, postureEulerLen)
	p[0] = sensorPostureID
	p[1] = postureTypeEuler
	binary.LittleEndian.PutUint16(p[2:], uint16(int16(e.Roll)))
	binary.LittleEndian.PutUint16(p[4:], uint16(int16(e.Pitch)))
	binary.LittleEndian.PutUint16(p[6:], uint16(int16(e.Yaw)))
	return p
}

// EncodeHighPrecisionEuler builds a high-precision Euler posture record.
func EncodeHighPrecisionEuler(e domain.EulerAngles) []byte {
	p := make([]byte, postureHighPrecLen)
	p[0] = sensorPostureID
	p[1] = postureTypeHighPrecisionEuler
	putFloat32(p, 2, e.Roll)
	putFloat32(p, 6, e.Pitch)
	putFloat32(p, 10, e.Yaw)
	return p
}

// EncodeMotion builds a motion detection record.
func EncodeMotion(m MotionInfo) []byte {
	return []byte{sensorMotionID, boolByte(m.Horizontal), boolByte(m.Collision), boolByte(m.DoubleTap), m.Posture, m.Shake}
}

func float32At(p []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(p[off:])))
}

func putFloat32(p []byte, off int, v float64) {
	binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(v)))
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}
