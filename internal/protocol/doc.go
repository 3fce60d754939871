// Package protocol defines the wire protocol shared by the transport,
// broker, and coordinator layers.
//
// The server speaks an event-based protocol: every frame is a JSON envelope
// {"event": "...", "data": {...}}. Each inbound event name maps to exactly
// one typed payload struct (see DecodePayload), so consumers never handle
// untyped maps.
//
// Conventions:
//   - Event names: snake_case strings matching the server contract
//   - Payloads: one struct per event, tagged with json field names
//   - IDs: server-assigned strings (session IDs, room IDs)
package protocol
