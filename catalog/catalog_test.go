package catalog

import (
	"fmt"
	"strings"
	"testing"
)

// testLogger collects warnings so tests can assert on skipped lines.
type testLogger struct {
	warnings []string
}

func (l *testLogger) Warn(format string, v ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

const testCatalog = `VERSION ""

BU_: ECM TCM BCM

BO_ 832 ENGINE_RPM1: 8 TCM
 SG_ TRANS_MODE : 0|5@1+ (1,0) [0|31] "" DASH
 SG_ GEAR_SELECT : 8|4@1+ (1,0) [0|15] "" DASH

BO_ 821 FUEL: 8 BCM
 SG_ FUEL_LEVEL : 0|8@1+ (0.3984,0) [0|100] "%" DASH

VAL_ 832 TRANS_MODE 1 "DRIVE" 7 "REVERSE" ;
CM_ SG_ 832 TRANS_MODE "Shared code for park and neutral";
`

func parseTestCatalog(t *testing.T, text string) (*Catalog, *testLogger) {
	t.Helper()
	log := &testLogger{}
	c, err := Parse(strings.NewReader(text), log)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return c, log
}

func TestParse_Messages(t *testing.T) {
	c, log := parseTestCatalog(t, testCatalog)

	if len(log.warnings) != 0 {
		t.Errorf("unexpected warnings: %v", log.warnings)
	}
	if c.Messages() != 2 {
		t.Fatalf("expected 2 messages, got %d", c.Messages())
	}

	msg, ok := c.Lookup(832)
	if !ok {
		t.Fatal("message 832 not found")
	}
	if msg.Name != "ENGINE_RPM1" {
		t.Errorf("name: expected ENGINE_RPM1, got %s", msg.Name)
	}
	if msg.DLC != 8 {
		t.Errorf("DLC: expected 8, got %d", msg.DLC)
	}
	if len(msg.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(msg.Signals))
	}
}

func TestParse_SignalFields(t *testing.T) {
	c, _ := parseTestCatalog(t, testCatalog)

	msg, _ := c.Lookup(821)
	if len(msg.Signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(msg.Signals))
	}
	sig := msg.Signals[0]

	if sig.Name != "FUEL_LEVEL" {
		t.Errorf("name: expected FUEL_LEVEL, got %s", sig.Name)
	}
	if sig.StartBit != 0 || sig.Length != 8 {
		t.Errorf("bits: expected 0|8, got %d|%d", sig.StartBit, sig.Length)
	}
	if sig.Order != LittleEndian {
		t.Error("order: expected little-endian")
	}
	if sig.Signed {
		t.Error("expected unsigned signal")
	}
	if sig.Scale != 0.3984 || sig.Offset != 0 {
		t.Errorf("scaling: expected (0.3984,0), got (%v,%v)", sig.Scale, sig.Offset)
	}
	if sig.Min != 0 || sig.Max != 100 {
		t.Errorf("range: expected [0|100], got [%v|%v]", sig.Min, sig.Max)
	}
	if sig.Unit != "%" {
		t.Errorf("unit: expected %%, got %q", sig.Unit)
	}
}

func TestParse_ValueTable(t *testing.T) {
	c, _ := parseTestCatalog(t, testCatalog)

	msg, _ := c.Lookup(832)
	sig := msg.Signals[0]
	if sig.Name != "TRANS_MODE" {
		t.Fatalf("unexpected first signal %s", sig.Name)
	}
	if sig.Enum[1] != "DRIVE" || sig.Enum[7] != "REVERSE" {
		t.Errorf("enum: expected DRIVE/REVERSE, got %v", sig.Enum)
	}
	if sig.Comment != "Shared code for park and neutral" {
		t.Errorf("comment: got %q", sig.Comment)
	}
}

func TestParse_MalformedSignalSkipped(t *testing.T) {
	text := `BO_ 832 ENGINE_RPM1: 8 TCM
 SG_ BROKEN 0|5@1+
 SG_ TRANS_MODE : 0|5@1+ (1,0) [0|31] "" DASH
`
	c, log := parseTestCatalog(t, text)

	if len(log.warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", log.warnings)
	}
	msg, _ := c.Lookup(832)
	if len(msg.Signals) != 1 || msg.Signals[0].Name != "TRANS_MODE" {
		t.Errorf("expected only TRANS_MODE to survive, got %v", msg.Signals)
	}
}

func TestParse_SignalOutsideMessage(t *testing.T) {
	text := ` SG_ TRANS_MODE : 0|5@1+ (1,0) [0|31] "" DASH
`
	c, log := parseTestCatalog(t, text)

	if c.Messages() != 0 {
		t.Errorf("expected empty catalog, got %d messages", c.Messages())
	}
	if len(log.warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", log.warnings)
	}
}

func TestParse_ZeroScaleRejected(t *testing.T) {
	text := `BO_ 821 FUEL: 8 BCM
 SG_ FUEL_LEVEL : 0|8@1+ (0,0) [0|100] "%" DASH
`
	c, log := parseTestCatalog(t, text)

	msg, _ := c.Lookup(821)
	if len(msg.Signals) != 0 {
		t.Error("zero scale signal should be skipped")
	}
	if len(log.warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", log.warnings)
	}
}

func TestParse_ValueTableUnknownSignal(t *testing.T) {
	text := `BO_ 832 ENGINE_RPM1: 8 TCM
 SG_ TRANS_MODE : 0|5@1+ (1,0) [0|31] "" DASH
VAL_ 832 NO_SUCH_SIGNAL 1 "DRIVE" ;
`
	_, log := parseTestCatalog(t, text)

	if len(log.warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", log.warnings)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("does-not-exist.dbc", &testLogger{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSplitQuoted(t *testing.T) {
	tokens := splitQuoted(`VAL_ 832 TRANS_MODE 1 "DRIVE MODE" 7 "REVERSE"`)
	expected := []string{"VAL_", "832", "TRANS_MODE", "1", "DRIVE MODE", "7", "REVERSE"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %v", len(expected), tokens)
	}
	for i, tok := range expected {
		if tokens[i] != tok {
			t.Errorf("token %d: expected %q, got %q", i, tok, tokens[i])
		}
	}
}
