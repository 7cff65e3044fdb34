package tracker

import (
	"math"
	"sync"
)

// DefaultThreshold is the minimum percentage-point change required for an
// observation to be accepted.
const DefaultThreshold = 0.5

// Outcome is the result of observing a slot percentage.
type Outcome uint8

const (
	// Accepted indicates the observation differs enough from the baseline
	// (or is the first for its slot) and the baseline has been advanced.
	Accepted Outcome = iota

	// Suppressed indicates the observation is within the threshold of the
	// baseline and should not produce an update.
	Suppressed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "ACCEPTED"
	case Suppressed:
		return "SUPPRESSED"
	default:
		return "UNKNOWN"
	}
}

// SlotTracker keeps the last accepted remaining percentage per slot.
// It is safe for concurrent use, though the supervisor drives it from a
// single goroutine. Each client instance owns its own tracker.
type SlotTracker struct {
	mu        sync.Mutex
	threshold float64
	baseline  map[string]float64
}

// New creates a tracker with the default 0.5 percentage-point threshold.
func New() *SlotTracker {
	return NewWithThreshold(DefaultThreshold)
}

// NewWithThreshold creates a tracker with a custom threshold.
// Thresholds <= 0 fall back to the default.
func NewWithThreshold(threshold float64) *SlotTracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &SlotTracker{
		threshold: threshold,
		baseline:  make(map[string]float64),
	}
}

// Observe records a remaining-percentage reading for a slot.
//
// The first observation for a slot is always Accepted. Later observations
// are Suppressed when |new - baseline| < threshold; a delta of exactly the
// threshold is Accepted. On Accepted the stored baseline is replaced.
func (t *SlotTracker) Observe(slotID string, percent float64) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, seen := t.baseline[slotID]
	if seen && math.Abs(percent-prior) < t.threshold {
		return Suppressed
	}

	t.baseline[slotID] = percent
	return Accepted
}

// Baseline returns the last accepted percentage for a slot, if any.
func (t *SlotTracker) Baseline(slotID string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.baseline[slotID]
	return v, ok
}

// Len returns the number of slots with a baseline.
func (t *SlotTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.baseline)
}
