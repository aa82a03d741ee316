package canbus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SLCAN (Lawicel) serial command set: single-letter commands, CR
// terminated. Frames are ASCII hex: t<iii><l><dd...> for standard
// identifiers, T<iiiiiiii><l><dd...> for extended ones.
const (
	slcanClose   = "C\r"
	slcanOpen    = "O\r"
	slcanBell    = 0x07 // adapter error response
	slcanMaxLine = 32
)

// slcanBitrateCodes maps CAN bit rates to the S<n> setup command code.
var slcanBitrateCodes = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// errNotAFrame marks adapter chatter (acks, version strings) that is
// not a CAN frame and carries no error either.
var errNotAFrame = errors.New("not a frame")

func slcanBitrateCommand(bitrate int) (string, error) {
	code, ok := slcanBitrateCodes[bitrate]
	if !ok {
		return "", fmt.Errorf("canbus: unsupported bit rate %d", bitrate)
	}
	return fmt.Sprintf("S%c\r", code), nil
}

// encodeSLCAN renders an outbound frame as an SLCAN line.
func encodeSLCAN(f Frame) string {
	var b strings.Builder
	if f.Extended {
		b.WriteByte('T')
		fmt.Fprintf(&b, "%08X", f.ID&0x1FFFFFFF)
	} else {
		b.WriteByte('t')
		fmt.Fprintf(&b, "%03X", f.ID&0x7FF)
	}
	b.WriteByte('0' + (f.Length & 0x0F))
	for _, d := range f.Payload() {
		fmt.Fprintf(&b, "%02X", d)
	}
	b.WriteByte('\r')
	return b.String()
}

// parseSLCAN parses one received line. Lines that are valid adapter
// responses but not frames return errNotAFrame; anything else
// malformed returns a parse error the caller logs and skips.
func parseSLCAN(line string, now time.Time) (Frame, error) {
	if len(line) == 0 {
		return Frame{}, errNotAFrame
	}

	var idLen int
	var extended bool
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
		extended = true
	case 'r', 'R', 'z', 'Z', 'V', 'v', 'N', 'F':
		// Remote frames and command replies: nothing to decode.
		return Frame{}, errNotAFrame
	default:
		return Frame{}, fmt.Errorf("canbus: unrecognized slcan line %q", line)
	}

	if len(line) < 1+idLen+1 {
		return Frame{}, fmt.Errorf("canbus: truncated slcan frame %q", line)
	}

	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("canbus: bad slcan identifier %q", line)
	}

	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > 8 {
		return Frame{}, fmt.Errorf("canbus: bad slcan length %q", line)
	}
	hex := line[1+idLen+1:]
	if len(hex) < 2*dlc {
		return Frame{}, fmt.Errorf("canbus: short slcan payload %q", line)
	}

	f := Frame{
		ID:       uint32(id),
		Length:   uint8(dlc),
		Extended: extended,
		Time:     now,
	}
	for i := 0; i < dlc; i++ {
		b, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return Frame{}, fmt.Errorf("canbus: bad slcan payload %q", line)
		}
		f.Data[i] = byte(b)
	}
	return f, nil
}
