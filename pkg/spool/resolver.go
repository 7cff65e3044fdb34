package spool

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spoolbridge/spoolbridge-go/pkg/telemetry"
)

// Resolution errors. The first two mark a record as irrelevant (expected,
// silent skip); the rest are warning-level unusable values.
var (
	// ErrSlotUnmapped indicates the tray's slot has no spool mapping.
	ErrSlotUnmapped = errors.New("spool: slot not mapped")

	// ErrNoRemaining indicates the tray carries no remain field yet.
	ErrNoRemaining = errors.New("spool: no remaining percentage reported")

	// ErrBadRemaining indicates the remain field is not numeric.
	ErrBadRemaining = errors.New("spool: remaining percentage not numeric")

	// ErrNoTotalWeight indicates the tray carries no tray_weight field.
	ErrNoTotalWeight = errors.New("spool: no tray weight reported")

	// ErrBadTotalWeight indicates the tray_weight field is not numeric.
	ErrBadTotalWeight = errors.New("spool: tray weight not numeric")
)

// Irrelevant reports whether a resolution error means the record is simply
// not for us (unmapped slot, or no data yet) as opposed to unusable.
func Irrelevant(err error) bool {
	return errors.Is(err, ErrSlotUnmapped) || errors.Is(err, ErrNoRemaining)
}

// Mapping maps printer slot IDs (e.g. "0".."3") to spool IDs in the
// inventory store. Immutable for the lifetime of a client instance.
type Mapping map[string]int

// Observation is phase one of resolving a tray record: the slot located in
// the mapping with a numeric remaining percentage. Out-of-range
// percentages pass through unmodified.
type Observation struct {
	SlotID  string
	SpoolID int
	Percent float64
}

// Resolver resolves tray records against a slot mapping.
type Resolver struct {
	mapping Mapping
}

// NewResolver creates a resolver over the given mapping.
func NewResolver(mapping Mapping) *Resolver {
	return &Resolver{mapping: mapping}
}

// Resolve locates the tray's slot in the mapping and extracts its
// remaining percentage.
//
// ErrSlotUnmapped and ErrNoRemaining are expected conditions; use
// Irrelevant to distinguish them from unusable values. ErrBadRemaining
// wraps the offending raw value for diagnostics.
func (r *Resolver) Resolve(tray telemetry.Tray) (Observation, error) {
	slotID := trayID(tray["id"])

	spoolID, ok := r.mapping[slotID]
	if !ok {
		return Observation{}, fmt.Errorf("%w: slot %q", ErrSlotUnmapped, slotID)
	}

	raw, ok := tray["remain"]
	if !ok || raw == nil {
		return Observation{}, fmt.Errorf("%w: slot %q", ErrNoRemaining, slotID)
	}

	percent, ok := toFloat(raw)
	if !ok {
		return Observation{}, fmt.Errorf("%w: slot %q value %v", ErrBadRemaining, slotID, raw)
	}

	return Observation{SlotID: slotID, SpoolID: spoolID, Percent: percent}, nil
}

// RemainingWeight extracts the tray's declared total weight and computes
// the remaining weight in grams for the observed percentage. No clamping:
// out-of-range inputs produce out-of-range grams.
func (r *Resolver) RemainingWeight(tray telemetry.Tray, obs Observation) (float64, error) {
	raw, ok := tray["tray_weight"]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: slot %q", ErrNoTotalWeight, obs.SlotID)
	}

	total, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%w: slot %q value %v", ErrBadTotalWeight, obs.SlotID, raw)
	}

	return (obs.Percent / 100.0) * total, nil
}

// trayID coerces a raw id value to the mapping's string form. Printers
// report ids as strings; numeric ids are formatted without a fraction.
func trayID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// toFloat coerces a raw JSON value to float64. Printers report numbers
// both as JSON numbers and as decimal strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
