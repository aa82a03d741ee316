// Package catalog loads and queries the signal definition database: a
// DBC-subset text file mapping CAN identifiers to the bit layout,
// scaling and enumerations of the signals they carry. The catalog is
// immutable after load and safe for concurrent lookups.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Logger is the subset of logging the loader needs to report skipped
// definitions.
type Logger interface {
	Warn(format string, v ...interface{})
}

// ByteOrder selects how a signal's bits are laid out in the payload.
type ByteOrder int

const (
	BigEndian    ByteOrder = iota // Motorola, "@0" in DBC notation
	LittleEndian                  // Intel, "@1"
)

// Signal describes one bit field within a message payload. StartBit
// follows DBC conventions: the LSB position for little-endian signals,
// the MSB position for big-endian ones.
type Signal struct {
	Name     string
	StartBit uint8
	Length   uint8
	Order    ByteOrder
	Signed   bool
	Scale    float64
	Offset   float64
	Min      float64
	Max      float64
	Unit     string
	Comment  string
	Enum     map[int64]string
}

// Message groups the signals carried by one CAN identifier.
type Message struct {
	ID      uint32
	Name    string
	DLC     uint8
	Signals []*Signal
}

// Catalog is the loaded signal database.
type Catalog struct {
	messages map[uint32]*Message
}

// Lookup returns the message definition for id, if any.
func (c *Catalog) Lookup(id uint32) (*Message, bool) {
	m, ok := c.messages[id]
	return m, ok
}

// Messages returns the number of loaded message definitions.
func (c *Catalog) Messages() int {
	return len(c.messages)
}

// Load reads a catalog file from disk. A single malformed signal
// definition is logged and skipped; only an unreadable file is fatal.
func Load(path string, log Logger) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, log)
}

// Parse reads catalog definitions from r. See Load.
func Parse(r io.Reader, log Logger) (*Catalog, error) {
	c := &Catalog{messages: make(map[uint32]*Message)}

	var current *Message
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "BO_ "):
			msg, err := parseMessage(line)
			if err != nil {
				warnf(log, "catalog: line %d: %v", lineNo, err)
				current = nil
				continue
			}
			c.messages[msg.ID] = msg
			current = msg

		case strings.HasPrefix(line, "SG_ "):
			if current == nil {
				warnf(log, "catalog: line %d: signal outside message block", lineNo)
				continue
			}
			sig, err := parseSignal(line)
			if err != nil {
				warnf(log, "catalog: line %d: %v", lineNo, err)
				continue
			}
			current.Signals = append(current.Signals, sig)

		case strings.HasPrefix(line, "VAL_ "):
			if err := c.parseValueTable(line); err != nil {
				warnf(log, "catalog: line %d: %v", lineNo, err)
			}

		case strings.HasPrefix(line, "CM_ SG_ "):
			if err := c.parseSignalComment(line); err != nil {
				warnf(log, "catalog: line %d: %v", lineNo, err)
			}

		default:
			// Version headers, node lists and anything else in the
			// wider DBC grammar are irrelevant to decoding.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}

	return c, nil
}

// parseMessage handles "BO_ 832 ENGINE_RPM1: 8 BCM".
func parseMessage(line string) (*Message, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("malformed message definition: %q", line)
	}

	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q", fields[1])
	}
	if id > 0x1FFFFFFF {
		return nil, fmt.Errorf("message id %d exceeds 29 bits", id)
	}

	dlc, err := strconv.ParseUint(fields[3], 10, 8)
	if err != nil || dlc > 8 {
		return nil, fmt.Errorf("invalid DLC %q", fields[3])
	}

	return &Message{
		ID:   uint32(id),
		Name: strings.TrimSuffix(fields[2], ":"),
		DLC:  uint8(dlc),
	}, nil
}

// parseSignal handles
// `SG_ TRANS_MODE : 0|5@1+ (1,0) [0|31] "" DASH`.
func parseSignal(line string) (*Signal, error) {
	name, rest, ok := strings.Cut(strings.TrimPrefix(line, "SG_ "), ":")
	if !ok {
		return nil, fmt.Errorf("malformed signal definition: %q", line)
	}
	// A multiplexer indicator (m0, M) may sit between name and colon.
	nameFields := strings.Fields(name)
	if len(nameFields) == 0 {
		return nil, fmt.Errorf("missing signal name: %q", line)
	}

	sig := &Signal{Name: nameFields[0], Scale: 1}

	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return nil, fmt.Errorf("truncated signal definition: %q", line)
	}

	if err := parseBitSpec(fields[0], sig); err != nil {
		return nil, fmt.Errorf("signal %s: %w", sig.Name, err)
	}
	if err := parseScaleSpec(fields[1], sig); err != nil {
		return nil, fmt.Errorf("signal %s: %w", sig.Name, err)
	}
	if err := parseRangeSpec(fields[2], sig); err != nil {
		return nil, fmt.Errorf("signal %s: %w", sig.Name, err)
	}

	// Unit is quoted and may contain spaces, so take it from the raw
	// remainder rather than the split fields.
	if start := strings.Index(rest, `"`); start >= 0 {
		if end := strings.Index(rest[start+1:], `"`); end >= 0 {
			sig.Unit = rest[start+1 : start+1+end]
		}
	}

	return sig, nil
}

// parseBitSpec handles "0|5@1+": start|length@order followed by sign.
func parseBitSpec(spec string, sig *Signal) error {
	startStr, rest, ok := strings.Cut(spec, "|")
	if !ok {
		return fmt.Errorf("malformed bit spec %q", spec)
	}
	lenStr, orderStr, ok := strings.Cut(rest, "@")
	if !ok || len(orderStr) != 2 {
		return fmt.Errorf("malformed bit spec %q", spec)
	}

	start, err := strconv.ParseUint(startStr, 10, 8)
	if err != nil || start > 63 {
		return fmt.Errorf("invalid start bit %q", startStr)
	}
	length, err := strconv.ParseUint(lenStr, 10, 8)
	if err != nil || length == 0 || length > 64 {
		return fmt.Errorf("invalid bit length %q", lenStr)
	}

	switch orderStr[0] {
	case '0':
		sig.Order = BigEndian
	case '1':
		sig.Order = LittleEndian
	default:
		return fmt.Errorf("invalid byte order %q", orderStr)
	}
	switch orderStr[1] {
	case '+':
		sig.Signed = false
	case '-':
		sig.Signed = true
	default:
		return fmt.Errorf("invalid sign %q", orderStr)
	}

	sig.StartBit = uint8(start)
	sig.Length = uint8(length)
	return nil
}

// parseScaleSpec handles "(0.3984,0)".
func parseScaleSpec(spec string, sig *Signal) error {
	if !strings.HasPrefix(spec, "(") || !strings.HasSuffix(spec, ")") {
		return fmt.Errorf("malformed scale spec %q", spec)
	}
	scaleStr, offStr, ok := strings.Cut(spec[1:len(spec)-1], ",")
	if !ok {
		return fmt.Errorf("malformed scale spec %q", spec)
	}

	scale, err := strconv.ParseFloat(scaleStr, 64)
	if err != nil || scale == 0 {
		return fmt.Errorf("invalid scale %q", scaleStr)
	}
	off, err := strconv.ParseFloat(offStr, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q", offStr)
	}

	sig.Scale = scale
	sig.Offset = off
	return nil
}

// parseRangeSpec handles "[0|255]".
func parseRangeSpec(spec string, sig *Signal) error {
	if !strings.HasPrefix(spec, "[") || !strings.HasSuffix(spec, "]") {
		return fmt.Errorf("malformed range spec %q", spec)
	}
	minStr, maxStr, ok := strings.Cut(spec[1:len(spec)-1], "|")
	if !ok {
		return fmt.Errorf("malformed range spec %q", spec)
	}

	min, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return fmt.Errorf("invalid range minimum %q", minStr)
	}
	max, err := strconv.ParseFloat(maxStr, 64)
	if err != nil {
		return fmt.Errorf("invalid range maximum %q", maxStr)
	}

	sig.Min = min
	sig.Max = max
	return nil
}

// parseValueTable handles
// `VAL_ 832 TRANS_MODE 1 "DRIVE" 7 "REVERSE" ;`.
func (c *Catalog) parseValueTable(line string) error {
	tokens := splitQuoted(strings.TrimSuffix(strings.TrimSpace(line), ";"))
	if len(tokens) < 5 {
		return fmt.Errorf("malformed value table: %q", line)
	}

	id, err := strconv.ParseUint(tokens[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid value table message id %q", tokens[1])
	}
	sig, err := c.findSignal(uint32(id), tokens[2])
	if err != nil {
		return err
	}

	enum := make(map[int64]string)
	pairs := tokens[3:]
	if len(pairs)%2 != 0 {
		return fmt.Errorf("odd value table for %s", sig.Name)
	}
	for i := 0; i < len(pairs); i += 2 {
		raw, err := strconv.ParseInt(pairs[i], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid enumeration value %q", pairs[i])
		}
		enum[raw] = pairs[i+1]
	}

	sig.Enum = enum
	return nil
}

// parseSignalComment handles
// `CM_ SG_ 1056 LEFT_SIGNAL_STATUS "L,R both active means hazard";`.
func (c *Catalog) parseSignalComment(line string) error {
	tokens := splitQuoted(strings.TrimSuffix(strings.TrimSpace(line), ";"))
	if len(tokens) < 5 {
		return fmt.Errorf("malformed signal comment: %q", line)
	}

	id, err := strconv.ParseUint(tokens[2], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid comment message id %q", tokens[2])
	}
	sig, err := c.findSignal(uint32(id), tokens[3])
	if err != nil {
		return err
	}

	sig.Comment = tokens[4]
	return nil
}

func (c *Catalog) findSignal(id uint32, name string) (*Signal, error) {
	msg, ok := c.messages[id]
	if !ok {
		return nil, fmt.Errorf("unknown message id %d", id)
	}
	for _, sig := range msg.Signals {
		if sig.Name == name {
			return sig, nil
		}
	}
	return nil, fmt.Errorf("unknown signal %s in message %d", name, id)
}

// splitQuoted splits on whitespace, keeping quoted strings as single
// tokens with the quotes stripped.
func splitQuoted(s string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			if inQuote {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t'):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func warnf(log Logger, format string, v ...interface{}) {
	if log != nil {
		log.Warn(format, v...)
	}
}
