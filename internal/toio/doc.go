// Package toio encodes and decodes the toio Core Cube BLE protocol.
//
// Only the parts the streaming loop touches are covered: the button
// characteristic, the sensor characteristic, and the posture-angle
// detection command on the configuration characteristic.
//
// Decoding never fails with an error. A payload that does not have the
// expected shape decodes to an explicit "unrecognized" result so callers can
// drop it.
//
// All multi-byte values are little-endian.
package toio
