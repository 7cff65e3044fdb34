// Package spoolman implements the inventory store interfaces against the
// Spoolman REST API.
//
// Weight updates go through PATCH /api/v1/spool/{id} with a single-field
// body. A Session wraps one message's worth of updates; sessions are
// cheap (they share the client's connection pool) but scoped, so the
// supervisor can release them unconditionally between messages.
package spoolman
