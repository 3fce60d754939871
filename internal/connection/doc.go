// Package connection implements the Connection Manager component.
//
// The manager:
//   - Owns the single transport handle for the process
//   - Splits initialization (token, transport construction, scheduler)
//     from connecting (dial + server acknowledgment)
//   - Guards against duplicate concurrent connect attempts
//   - Derives connectivity by reconciling the local flag against the
//     transport's own status
//   - Pumps every inbound frame into the event broker in arrival order
//
// Reconnection is deliberately consumer-initiated; the manager never retries
// on its own.
package connection
