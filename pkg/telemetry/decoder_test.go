package telemetry

import (
	"errors"
	"testing"
)

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"NotJSON", "not json at all"},
		{"Truncated", `{"print": {"ams"`},
		{"Empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			units, err := Decode([]byte(tc.raw))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("err = %v, want ErrMalformedPayload", err)
			}
			if units != nil {
				t.Errorf("units = %v, want nil", units)
			}
		})
	}
}

func TestDecodeIgnoredMessages(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"NoPrintSection", `{"system": {"command": "get_version"}}`},
		{"PrintNotObject", `{"print": 42}`},
		{"NoAMSSection", `{"print": {"gcode_state": "RUNNING"}}`},
		{"AMSNotObject", `{"print": {"ams": "nope"}}`},
		{"NoUnitList", `{"print": {"ams": {"version": 3}}}`},
		{"UnitListNotArray", `{"print": {"ams": {"ams": {}}}}`},
		{"EmptyUnitList", `{"print": {"ams": {"ams": []}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			units, err := Decode([]byte(tc.raw))
			if err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
			if len(units) != 0 {
				t.Errorf("units = %v, want empty", units)
			}
		})
	}
}

func TestDecodeTrays(t *testing.T) {
	raw := `{"print": {"ams": {"ams": [
		{"tray": [
			{"id": "0", "remain": 62, "tray_weight": "1000"},
			{"id": "1", "remain": 10.5, "tray_weight": 750}
		]},
		{"tray": [
			{"id": "0", "remain": 99}
		]}
	]}}}`

	units, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2", len(units))
	}
	if len(units[0].Trays) != 2 {
		t.Fatalf("unit 0 trays = %d, want 2", len(units[0].Trays))
	}
	if len(units[1].Trays) != 1 {
		t.Fatalf("unit 1 trays = %d, want 1", len(units[1].Trays))
	}

	// Document order is preserved and values are untouched.
	if units[0].Trays[0]["id"] != "0" {
		t.Errorf("tray 0 id = %v, want \"0\"", units[0].Trays[0]["id"])
	}
	if units[0].Trays[0]["remain"] != float64(62) {
		t.Errorf("tray 0 remain = %v, want 62", units[0].Trays[0]["remain"])
	}
	if units[0].Trays[0]["tray_weight"] != "1000" {
		t.Errorf("tray 0 tray_weight = %v, want \"1000\"", units[0].Trays[0]["tray_weight"])
	}
}

func TestDecodeSkipsMalformedRecords(t *testing.T) {
	raw := `{"print": {"ams": {"ams": [
		"not a unit",
		{"tray": [
			"not a record",
			{"id": "2", "remain": 40, "tray_weight": 1000},
			17
		]},
		{"humidity": "3"}
	]}}}`

	units, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	// The string unit entry is dropped; the unit without a tray list
	// survives with zero trays.
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2", len(units))
	}
	if len(units[0].Trays) != 1 {
		t.Errorf("unit 0 trays = %d, want 1 (malformed records skipped)", len(units[0].Trays))
	}
	if len(units[1].Trays) != 0 {
		t.Errorf("unit 1 trays = %d, want 0", len(units[1].Trays))
	}
}
