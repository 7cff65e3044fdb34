package spool

import "context"

// Session is a scoped handle to the inventory store, valid for the
// duration of one message's processing. Implementations must tolerate
// Close after a failed update.
type Session interface {
	// UpdateRemainingWeight durably sets the remaining weight for a spool.
	UpdateRemainingWeight(ctx context.Context, spoolID int, grams float64) error

	// Close releases the session. Safe to call exactly once per session.
	Close() error
}

// SessionFactory opens store sessions. The supervisor acquires a fresh
// session per message and releases it before the next receive, so a
// persistence failure cannot hold a resource across the receive wait.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}
