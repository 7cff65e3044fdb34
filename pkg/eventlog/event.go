package eventlog

import (
	"time"
)

// Event represents one bridge event. CBOR encoding uses integer keys for
// compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the broker session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Serial is the printer serial the client is bound to.
	Serial string `cbor:"3,keyasint,omitempty"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	StateChange *StateChangeEvent `cbor:"5,keyasint,omitempty"`
	Report      *ReportEvent      `cbor:"6,keyasint,omitempty"`
	Dispatch    *DispatchEvent    `cbor:"7,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"8,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryStateChange is a supervisor state transition.
	CategoryStateChange Category = 0
	// CategoryReport is a processed report message summary.
	CategoryReport Category = 1
	// CategoryDispatch is one spool update attempt.
	CategoryDispatch Category = 2
	// CategoryError is an error at any stage.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStateChange:
		return "STATE_CHANGE"
	case CategoryReport:
		return "REPORT"
	case CategoryDispatch:
		return "DISPATCH"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures a supervisor state transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`

	// BackoffDelay is the wait before the next attempt, for transitions
	// into a reconnect wait. Stored as nanoseconds.
	BackoffDelay time.Duration `cbor:"4,keyasint,omitempty"`
}

// ReportEvent summarizes the processing of one report message.
type ReportEvent struct {
	// Size is the raw payload size in bytes.
	Size int `cbor:"1,keyasint"`

	// Units is the number of AMS units in the report.
	Units int `cbor:"2,keyasint,omitempty"`

	// Trays is the total number of tray records seen.
	Trays int `cbor:"3,keyasint,omitempty"`

	// Suppressed counts observations dropped by change detection.
	Suppressed int `cbor:"4,keyasint,omitempty"`

	// Dispatched counts spool updates attempted.
	Dispatched int `cbor:"5,keyasint,omitempty"`
}

// DispatchEvent captures one spool update attempt.
type DispatchEvent struct {
	// SlotID is the printer-native slot identifier.
	SlotID string `cbor:"1,keyasint"`

	// SpoolID is the inventory spool the slot maps to.
	SpoolID int `cbor:"2,keyasint"`

	// Percent is the observed remaining percentage.
	Percent float64 `cbor:"3,keyasint"`

	// Grams is the computed remaining weight.
	Grams float64 `cbor:"4,keyasint"`

	// Updated indicates whether the store accepted the update.
	Updated bool `cbor:"5,keyasint"`
}

// ErrorEventData captures errors at any stage.
type ErrorEventData struct {
	// Op names the operation that failed (connect, subscribe, decode, ...).
	Op string `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`
}
