package obd

import (
	"testing"

	"dash-service/canbus"
)

func makeFrame(id uint32, data []byte) canbus.Frame {
	f := canbus.Frame{ID: id, Length: uint8(len(data))}
	copy(f.Data[:], data)
	return f
}

func TestRequestFrame(t *testing.T) {
	f := RequestFrame(PIDEngineRPM)

	if f.ID != RequestID {
		t.Errorf("id: expected 0x7DF, got 0x%X", f.ID)
	}
	if f.Length != 8 {
		t.Errorf("length: expected 8, got %d", f.Length)
	}
	expected := [8]byte{0x02, 0x01, 0x0C, 0, 0, 0, 0, 0}
	if f.Data != expected {
		t.Errorf("payload: expected % X, got % X", expected, f.Data)
	}
}

func TestParseResponse_Valid(t *testing.T) {
	// 3000 RPM: A=0x2E, B=0xE0 -> (0x2E*256+0xE0)/4 = 3000
	f := makeFrame(ResponseECU, []byte{0x04, 0x41, 0x0C, 0x2E, 0xE0, 0, 0, 0})

	pid, data, ok := ParseResponse(f)
	if !ok {
		t.Fatal("expected valid response")
	}
	if pid != PIDEngineRPM {
		t.Errorf("pid: expected 0x0C, got 0x%X", pid)
	}
	if len(data) != 2 || data[0] != 0x2E || data[1] != 0xE0 {
		t.Errorf("data: got % X", data)
	}
}

func TestParseResponse_FromTCM(t *testing.T) {
	f := makeFrame(ResponseTCM, []byte{0x03, 0x41, 0x05, 0x6E, 0, 0, 0, 0})

	pid, data, ok := ParseResponse(f)
	if !ok || pid != PIDCoolantTemp || len(data) != 1 {
		t.Fatalf("expected coolant response, got pid=0x%X data=% X ok=%v", pid, data, ok)
	}
}

func TestParseResponse_Rejected(t *testing.T) {
	tests := []struct {
		name string
		f    canbus.Frame
	}{
		{"wrong id", makeFrame(0x340, []byte{0x04, 0x41, 0x0C, 0x2E, 0xE0})},
		{"short frame", makeFrame(ResponseECU, []byte{0x04, 0x41})},
		{"wrong service", makeFrame(ResponseECU, []byte{0x04, 0x7F, 0x0C, 0x2E, 0xE0})},
		{"length byte too small", makeFrame(ResponseECU, []byte{0x01, 0x41, 0x0C, 0x2E})},
		{"length byte past frame", makeFrame(ResponseECU, []byte{0x07, 0x41, 0x0C, 0x2E})},
	}

	for _, tt := range tests {
		if _, _, ok := ParseResponse(tt.f); ok {
			t.Errorf("%s: expected rejection", tt.name)
		}
	}
}

func TestDecodeRPM(t *testing.T) {
	tests := []struct {
		a, b     byte
		expected float64
	}{
		{0x2E, 0xE0, 3000},
		{0x00, 0x00, 0},
		{0xFF, 0xFF, 16383.75},
		{0x0B, 0xB8, 750},
	}
	for _, tt := range tests {
		if got := decodeRPM([]byte{tt.a, tt.b}); got != tt.expected {
			t.Errorf("decodeRPM(%02X %02X): expected %v, got %v", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestDecodeCoolant(t *testing.T) {
	tests := []struct {
		a        byte
		expected float64
	}{
		{0x6E, 70},
		{0x28, 0},
		{0x00, -40},
	}
	for _, tt := range tests {
		if got := decodeCoolant([]byte{tt.a}); got != tt.expected {
			t.Errorf("decodeCoolant(%02X): expected %v, got %v", tt.a, tt.expected, got)
		}
	}
}

func TestCoolantPercent(t *testing.T) {
	tests := []struct {
		celsius  float64
		expected float64
	}{
		{40, 0},
		{80, 50},
		{120, 100},
		{20, 0},    // clamp below
		{150, 100}, // clamp above
	}
	for _, tt := range tests {
		if got := CoolantPercent(tt.celsius); got != tt.expected {
			t.Errorf("CoolantPercent(%v): expected %v, got %v", tt.celsius, tt.expected, got)
		}
	}
}

func TestStandardParameters(t *testing.T) {
	params := StandardParameters()
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	byName := make(map[string]Parameter)
	for _, p := range params {
		byName[p.Name] = p
	}
	if byName["engine-rpm"].PID != PIDEngineRPM || byName["engine-rpm"].Channel != "rpm" {
		t.Errorf("engine-rpm: %+v", byName["engine-rpm"])
	}
	if byName["coolant-temperature"].PID != PIDCoolantTemp {
		t.Errorf("coolant-temperature: %+v", byName["coolant-temperature"])
	}
}
