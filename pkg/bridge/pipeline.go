package bridge

import (
	"context"
	"time"

	"github.com/spoolbridge/spoolbridge-go/pkg/eventlog"
	"github.com/spoolbridge/spoolbridge-go/pkg/spool"
	"github.com/spoolbridge/spoolbridge-go/pkg/telemetry"
	"github.com/spoolbridge/spoolbridge-go/pkg/tracker"
)

// reportStats accumulates per-message pipeline counters for the event trace.
type reportStats struct {
	units      int
	trays      int
	suppressed int
	dispatched int
}

// processMessage runs one raw report through the pipeline. Every failure
// mode is contained here: nothing a message does can take down the
// receive loop.
func (c *Client) processMessage(ctx context.Context, connID string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic processing message", "panic", r)
			c.logEvent(connID, eventlog.Event{
				Category: eventlog.CategoryError,
				Error:    &eventlog.ErrorEventData{Op: "process", Message: "panic"},
			})
		}
	}()

	units, err := telemetry.Decode(payload)
	if err != nil {
		c.logger.Warn("discarding malformed payload", "error", err)
		c.logEvent(connID, eventlog.Event{
			Category: eventlog.CategoryError,
			Error:    &eventlog.ErrorEventData{Op: "decode", Message: err.Error()},
		})
		return
	}
	if len(units) == 0 {
		// Not a print-status report, or no AMS data. Nothing to do.
		return
	}

	sess, err := c.cfg.Sessions.NewSession(ctx)
	if err != nil {
		c.logger.Warn("store session unavailable", "error", err)
		c.logEvent(connID, eventlog.Event{
			Category: eventlog.CategoryError,
			Error:    &eventlog.ErrorEventData{Op: "session", Message: err.Error()},
		})
		return
	}
	// Released unconditionally before the next receive, whatever the
	// per-record outcomes were.
	defer sess.Close()

	stats := reportStats{units: len(units)}
	for _, unit := range units {
		for _, tray := range unit.Trays {
			stats.trays++
			c.processTray(ctx, connID, sess, tray, &stats)
		}
	}

	c.logEvent(connID, eventlog.Event{
		Category: eventlog.CategoryReport,
		Report: &eventlog.ReportEvent{
			Size:       len(payload),
			Units:      stats.units,
			Trays:      stats.trays,
			Suppressed: stats.suppressed,
			Dispatched: stats.dispatched,
		},
	})
}

// processTray runs one tray record through resolve → observe → weigh →
// dispatch. One tray's failure never blocks the next.
func (c *Client) processTray(ctx context.Context, connID string, sess spool.Session, tray telemetry.Tray, stats *reportStats) {
	obs, err := c.resolver.Resolve(tray)
	if err != nil {
		if spool.Irrelevant(err) {
			// Unmapped slot or no reading yet: expected, not worth a warning.
			c.logger.Debug("skipping tray", "reason", err)
			return
		}
		c.logger.Warn("unusable tray record", "error", err)
		c.logEvent(connID, eventlog.Event{
			Category: eventlog.CategoryError,
			Error:    &eventlog.ErrorEventData{Op: "resolve", Message: err.Error()},
		})
		return
	}

	if c.track.Observe(obs.SlotID, obs.Percent) == tracker.Suppressed {
		stats.suppressed++
		return
	}

	grams, err := c.resolver.RemainingWeight(tray, obs)
	if err != nil {
		// The observation is consumed: the baseline advanced above, so a
		// repeat of this percentage will not re-trigger.
		c.logger.Warn("cannot compute remaining weight", "error", err)
		c.logEvent(connID, eventlog.Event{
			Category: eventlog.CategoryError,
			Error:    &eventlog.ErrorEventData{Op: "weigh", Message: err.Error()},
		})
		return
	}

	c.logger.Info("slot changed",
		"slot", obs.SlotID,
		"spool_id", obs.SpoolID,
		"percent", obs.Percent,
		"grams", grams,
	)

	stats.dispatched++
	outcome := c.dispatcher.Dispatch(ctx, sess, obs.SpoolID, grams)

	c.logEvent(connID, eventlog.Event{
		Category: eventlog.CategoryDispatch,
		Dispatch: &eventlog.DispatchEvent{
			SlotID:  obs.SlotID,
			SpoolID: obs.SpoolID,
			Percent: obs.Percent,
			Grams:   grams,
			Updated: outcome == spool.Updated,
		},
	})
}

// logEvent stamps and emits one event.
func (c *Client) logEvent(connID string, event eventlog.Event) {
	event.Timestamp = time.Now()
	event.ConnectionID = connID
	event.Serial = c.cfg.Serial
	c.events.Log(event)
}
