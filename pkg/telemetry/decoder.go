package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload indicates the message body is not valid JSON.
// This is a per-message condition: log, discard, keep the connection.
var ErrMalformedPayload = errors.New("telemetry: malformed payload")

// Unit is one physical AMS unit. A report may carry several.
type Unit struct {
	// Trays holds the raw slot records in document order.
	// May be empty for a unit that reported no trays.
	Trays []Tray
}

// Tray is one raw slot record. Values are whatever the printer sent;
// coercion happens downstream.
type Tray map[string]any

// Decode parses a raw report message and extracts the AMS unit list.
//
// It returns (nil, nil) for valid JSON that is not a print-status report
// or carries no AMS data. Non-object entries inside unit and tray lists
// are skipped, never a whole-message failure.
func Decode(raw []byte) ([]Unit, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	printData, ok := section(doc, "print")
	if !ok {
		// Not a print-status report.
		return nil, nil
	}

	amsSection, ok := section(printData, "ams")
	if !ok {
		return nil, nil
	}

	unitList, ok := array(amsSection, "ams")
	if !ok || len(unitList) == 0 {
		return nil, nil
	}

	units := make([]Unit, 0, len(unitList))
	for _, entry := range unitList {
		unitObj, ok := object(entry)
		if !ok {
			continue
		}

		var unit Unit
		if trayList, ok := array(unitObj, "tray"); ok {
			for _, t := range trayList {
				record, ok := object(t)
				if !ok {
					// Malformed individual record: skip it, keep the rest.
					continue
				}
				unit.Trays = append(unit.Trays, Tray(record))
			}
		}
		units = append(units, unit)
	}

	return units, nil
}

// section returns the named child object of m. The second return value
// reports whether the key was present and held an object.
func section(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return object(v)
}

// array returns the named child list of m.
func array(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// object asserts that v is a JSON object.
func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
