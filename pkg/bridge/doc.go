// Package bridge implements the printer-to-inventory client.
//
// A Client owns one printer's broker session: it connects, subscribes to
// device/<serial>/report, and runs every received message through the
// decode → change-detection → weight-resolution → dispatch pipeline. On
// any transport failure it waits with exponential backoff and reconnects;
// only an explicit Stop ends the loop.
//
// # Processing Model
//
// One sequential control flow per Client. Messages are processed in
// arrival order, tray records in document order, and nothing is processed
// concurrently, because the change-detection baseline is order-sensitive.
// Run multiple Clients for multiple printers; they share no state.
//
// # Failure Containment
//
// Per-record conditions (unmapped slot, missing fields, non-numeric
// values, store rejections) are logged and skipped without affecting the
// rest of the message. Malformed payloads are discarded per message.
// Transport errors trigger backoff and reconnect. A processing panic is
// contained to the message that caused it.
package bridge
