// Package domain contains the core entities and value objects for toiopose.
//
// This package is the innermost layer. It has no dependencies on Bluetooth,
// network sinks, or logging and holds only the data that flows through the
// streaming loop.
//
// # Entities
//
//   - [PostureQuaternionSample]: one orientation reading from the cube
//   - [ButtonEvent]: decoded state of the cube's button
//   - [TerminationState]: flags shared between notification handlers and the poll loop
//   - [PoseUpdate] and the other [Record] kinds: what a renderer receives
//
// # Design Principles
//
// Domain values are:
//   - Plain data, copied by value
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
