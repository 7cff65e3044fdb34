// Package connection provides connection lifecycle primitives for the
// printer bridge.
//
// This package handles:
//   - Exponential backoff for reconnection attempts
//   - Optional jitter to prevent thundering herd
//   - Supervisor state tracking
//
// # Reconnection Strategy
//
// When the broker connection is lost, the supervisor uses exponential
// backoff:
//
//  1. Initial delay: 5 seconds
//  2. Exponential increase: 10s, 20s, 40s, 80s, 160s
//  3. Maximum delay: 300 seconds
//  4. Continue at 300s until successful
//  5. Reset to 5s on successful subscribe
//
// # Jitter
//
// Jitter is off by default so reconnect delays match the documented
// sequence. Deployments with many printers can enable it:
//
//	actual_delay = base_delay + random(0, base_delay * jitter)
//
// A reconnection is successful only once the report-topic subscription is
// acknowledged; a broker that accepts the TCP connection but rejects the
// subscribe does NOT reset backoff.
package connection
