package app

import "github.com/bft-labs/toiopose/internal/domain"

// ToPoseUpdate converts a cube sample into the renderer's x, y, z, w
// quaternion order. Components pass through unchanged; the cube reports
// unit quaternions and they are not renormalized here.
func ToPoseUpdate(s domain.PostureQuaternionSample) domain.PoseUpdate {
	return domain.PoseUpdate{Quaternion: [4]float64{s.X, s.Y, s.Z, s.W}}
}
