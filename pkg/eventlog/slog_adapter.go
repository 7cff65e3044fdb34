package eventlog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes bridge events to an slog.Logger.
// Useful for development when you want to see the event trace in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("category", event.Category.String()),
	}

	if event.Serial != "" {
		attrs = append(attrs, slog.String("serial", event.Serial))
	}

	// Add type-specific attributes
	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
		if event.StateChange.BackoffDelay > 0 {
			attrs = append(attrs, slog.Duration("backoff", event.StateChange.BackoffDelay))
		}
	case event.Report != nil:
		attrs = append(attrs,
			slog.Int("size", event.Report.Size),
			slog.Int("units", event.Report.Units),
			slog.Int("trays", event.Report.Trays),
			slog.Int("suppressed", event.Report.Suppressed),
			slog.Int("dispatched", event.Report.Dispatched),
		)
	case event.Dispatch != nil:
		attrs = append(attrs,
			slog.String("slot", event.Dispatch.SlotID),
			slog.Int("spool_id", event.Dispatch.SpoolID),
			slog.Float64("percent", event.Dispatch.Percent),
			slog.Float64("grams", event.Dispatch.Grams),
			slog.Bool("updated", event.Dispatch.Updated),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("op", event.Error.Op),
			slog.String("error", event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "bridge event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
