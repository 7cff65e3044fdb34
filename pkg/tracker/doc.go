// Package tracker implements change detection for per-slot filament levels.
//
// The printer republishes full AMS state frequently, including when nothing
// changed. The tracker keeps the last accepted remaining percentage per slot
// and suppresses observations that moved less than the threshold, so the
// inventory store only sees meaningful changes.
//
// # Baseline Policy
//
// The baseline advances on every Accepted observation, whether or not the
// caller goes on to produce a usable weight update. An observation with a
// broken tray_weight still consumes the change: replaying the same
// percentage afterwards will not re-trigger a dispatch.
package tracker
