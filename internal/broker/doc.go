// Package broker implements the Event Broker component.
//
// The broker:
//   - Demultiplexes inbound frames into a single-entry-per-event handler
//     table (last registration wins)
//   - Fans frames out to typed category channels (status, session, room,
//     message, error, custom) without ever blocking the producer
//   - Hosts the request correlator, which turns fire-and-forget events into
//     awaitable request/response pairs with deadlines
package broker
