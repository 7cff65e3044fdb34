package spool

import (
	"context"
	"log/slog"
)

// DispatchOutcome classifies the result of a store update.
type DispatchOutcome uint8

const (
	// Updated indicates the store accepted the new weight.
	Updated DispatchOutcome = iota

	// Failed indicates the store rejected or failed the update. The
	// failure is logged and contained; the pipeline moves on.
	Failed
)

// String returns the outcome name.
func (o DispatchOutcome) String() string {
	switch o {
	case Updated:
		return "UPDATED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Dispatcher pushes computed weights to the inventory store.
type Dispatcher struct {
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil logger uses slog.Default.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Dispatch updates one spool's remaining weight through the given session.
// Any store error is logged with the spool ID and attempted value and
// classified Failed; it never propagates to the message loop.
func (d *Dispatcher) Dispatch(ctx context.Context, sess Session, spoolID int, grams float64) DispatchOutcome {
	if err := sess.UpdateRemainingWeight(ctx, spoolID, grams); err != nil {
		d.logger.Warn("spool update failed",
			"spool_id", spoolID,
			"grams", grams,
			"error", err,
		)
		return Failed
	}

	d.logger.Info("spool updated",
		"spool_id", spoolID,
		"grams", grams,
	)
	return Updated
}
