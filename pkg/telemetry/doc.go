// Package telemetry decodes printer report messages.
//
// Bambu Lab printers publish JSON report documents on
// device/<serial>/report. The decoder extracts the AMS tray records from
// print-status reports:
//
//	{"print": {"ams": {"ams": [{"tray": [{"id": "0", "remain": 62, ...}]}]}}}
//
// Traversal is a sequence of named extraction steps, each returning an
// explicit presence signal, so every "message ignored" path is auditable:
// a report without a print section, without an ams subsystem, or with an
// empty unit list decodes to an empty result rather than an error. Only
// payloads that are not valid JSON fail with ErrMalformedPayload.
//
// Tray records are left uninterpreted (raw key/value maps): field
// extraction and coercion is the weight resolver's job.
package telemetry
