// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundary between the streaming core and the outside world:
// they say what the core needs from a Bluetooth stack or a viewer without
// saying how those needs are met.
//
// # Port Interfaces
//
//   - [DeviceTransport] and [Connection]: reach the cube and subscribe to its notifications
//   - [Renderer]: receives scene records and pose updates
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with tinygo bluetooth,
// gorilla/websocket, paho MQTT and zerolog.
package ports
