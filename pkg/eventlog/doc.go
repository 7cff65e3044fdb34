// Package eventlog provides structured event capture for the bridge.
//
// It is separate from operational logging (slog): the event log is a
// complete machine-readable trace of what the bridge did with each report
// message and connection, for debugging and post-hoc analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLogger = eventlog.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = eventlog.NewFileLogger("/var/log/spoolbridge/bridge.blog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = eventlog.NewMultiLogger(
//	    eventlog.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events cover the four things the bridge does: connection state changes
// (StateChangeEvent), report decoding (ReportEvent), spool updates
// (DispatchEvent), and errors (ErrorEventData).
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys and
// nanosecond timestamps. Reader iterates a file back into Events.
package eventlog
