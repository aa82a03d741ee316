package vehicle

import "testing"

func TestGearFromCodes(t *testing.T) {
	tests := []struct {
		name     string
		mode     int64
		selector int64
		expected Gear
	}{
		{"park", 0x00, 0, GearPark},
		{"park other selector", 0x00, 7, GearPark},
		{"neutral", 0x00, 4, GearNeutral},
		{"drive", 0x01, 0, GearDrive},
		{"drive ignores selector", 0x01, 4, GearDrive},
		{"sport", 0x02, 0, GearSport},
		{"low", 0x03, 0, GearLow},
		{"reverse", 0x07, 0, GearReverse},
		{"unmapped code", 0x05, 0, GearUnknown},
		{"all bits set", 0x1F, 0, GearUnknown},
	}

	for _, tt := range tests {
		if got := GearFromCodes(tt.mode, tt.selector); got != tt.expected {
			t.Errorf("%s: GearFromCodes(0x%02X, %d): expected %v, got %v",
				tt.name, tt.mode, tt.selector, tt.expected, got)
		}
	}
}

func TestGearString(t *testing.T) {
	tests := []struct {
		gear     Gear
		expected string
	}{
		{GearPark, "park"},
		{GearReverse, "reverse"},
		{GearNeutral, "neutral"},
		{GearDrive, "drive"},
		{GearSport, "sport"},
		{GearLow, "low"},
		{GearUnknown, "unknown"},
		{Gear(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.gear.String(); got != tt.expected {
			t.Errorf("Gear(%d): expected %q, got %q", tt.gear, tt.expected, got)
		}
	}
}

func TestTurnSignalFromInputs(t *testing.T) {
	tests := []struct {
		left, right bool
		expected    TurnSignal
	}{
		{false, false, TurnSignalOff},
		{true, false, TurnSignalLeft},
		{false, true, TurnSignalRight},
		{true, true, TurnSignalHazard},
	}

	for _, tt := range tests {
		if got := TurnSignalFromInputs(tt.left, tt.right); got != tt.expected {
			t.Errorf("(%v,%v): expected %v, got %v", tt.left, tt.right, tt.expected, got)
		}
	}
}

// The mapping is level-triggered: the result depends only on the
// current pair, never on the order states were passed through.
func TestTurnSignalFromInputs_HistoryFree(t *testing.T) {
	sequences := [][][2]bool{
		{{true, false}, {true, true}},               // left then hazard
		{{false, true}, {true, true}},               // right then hazard
		{{true, true}, {false, false}, {true, true}}, // hazard, off, hazard
	}

	for _, seq := range sequences {
		var last TurnSignal
		for _, pair := range seq {
			last = TurnSignalFromInputs(pair[0], pair[1])
		}
		final := seq[len(seq)-1]
		if last != TurnSignalFromInputs(final[0], final[1]) {
			t.Errorf("sequence %v: result depends on history", seq)
		}
	}
}

func TestTurnSignalString(t *testing.T) {
	tests := []struct {
		ts       TurnSignal
		expected string
	}{
		{TurnSignalOff, "off"},
		{TurnSignalLeft, "left"},
		{TurnSignalRight, "right"},
		{TurnSignalHazard, "hazard"},
	}
	for _, tt := range tests {
		if got := tt.ts.String(); got != tt.expected {
			t.Errorf("TurnSignal(%d): expected %q, got %q", tt.ts, tt.expected, got)
		}
	}
}
