package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ValueKind discriminates the closed set of decoded value types.
type ValueKind int

const (
	KindInvalid ValueKind = iota // sentinel for stale/unavailable data
	KindInt
	KindFloat
	KindEnum
)

// Value is one decoded signal value: an integer, a scaled float, or a
// symbolic enumeration tag. The zero Value is the invalid sentinel.
type Value struct {
	Kind ValueKind
	Num  float64 // physical value (scale and offset applied)
	Raw  int64   // raw field value before scaling
	Tag  string  // enumeration tag, KindEnum only
}

// Int builds an integer value.
func Int(raw int64) Value {
	return Value{Kind: KindInt, Num: float64(raw), Raw: raw}
}

// Float builds a floating point value.
func Float(num float64) Value {
	return Value{Kind: KindFloat, Num: num, Raw: int64(num)}
}

// Enum builds an enumerated value carrying both the raw integer and
// its symbolic tag.
func Enum(raw int64, tag string) Value {
	return Value{Kind: KindEnum, Num: float64(raw), Raw: raw, Tag: tag}
}

// Invalid is the sentinel published for stale or unavailable channels.
func Invalid() Value {
	return Value{}
}

// Valid reports whether v carries usable data.
func (v Value) Valid() bool {
	return v.Kind != KindInvalid
}

// String renders v for logging and IPC publication.
func (v Value) String() string {
	switch v.Kind {
	case KindEnum:
		return v.Tag
	case KindInt:
		return strconv.FormatInt(v.Raw, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return "unknown"
	}
}

// DecodeError reports a payload too short for a signal's declared bit
// range. The frame should be skipped, not the stream aborted.
type DecodeError struct {
	MessageID uint32
	Signal    string
	Need      int
	Have      int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("catalog: message 0x%03X signal %s needs %d payload bytes, have %d",
		e.MessageID, e.Signal, e.Need, e.Have)
}

// Decode extracts all signals defined for id from data. Identifiers
// absent from the catalog yield an empty mapping and no error: most
// traffic on a vehicle bus is not ours to interpret. A payload shorter
// than any defined signal's bit range yields a DecodeError.
//
// Decode is a pure function over the immutable catalog and safe to
// call concurrently.
func (c *Catalog) Decode(id uint32, data []byte) (map[string]Value, error) {
	msg, ok := c.messages[id]
	if !ok {
		return map[string]Value{}, nil
	}

	out := make(map[string]Value, len(msg.Signals))
	for _, sig := range msg.Signals {
		raw, err := sig.Extract(data)
		if err != nil {
			var derr *DecodeError
			if errors.As(err, &derr) {
				derr.MessageID = id
			}
			return nil, err
		}
		out[sig.Name] = sig.Physical(raw)
	}
	return out, nil
}

// Extract returns the raw unsigned bits for sig from data, or a
// DecodeError if data is too short.
func (s *Signal) Extract(data []byte) (uint64, error) {
	need := s.bytesNeeded()
	if len(data) < need {
		return 0, &DecodeError{Signal: s.Name, Need: need, Have: len(data)}
	}

	if s.Order == LittleEndian {
		return extractLittle(data, s.StartBit, s.Length), nil
	}
	return extractBig(data, s.StartBit, s.Length), nil
}

// Physical converts raw field bits into the signal's decoded value:
// sign extension, linear scaling and enumeration lookup.
func (s *Signal) Physical(raw uint64) Value {
	var signed int64
	if s.Signed {
		signed = signExtend(raw, s.Length)
	} else {
		signed = int64(raw)
	}

	if s.Enum != nil {
		if tag, ok := s.Enum[signed]; ok {
			return Enum(signed, tag)
		}
	}

	if s.Scale == 1 && s.Offset == 0 {
		return Int(signed)
	}
	return Float(float64(signed)*s.Scale + s.Offset)
}

// RawFromPhysical inverts the linear scaling, rounding to the nearest
// representable raw value.
func (s *Signal) RawFromPhysical(phys float64) uint64 {
	raw := math.Round((phys - s.Offset) / s.Scale)
	if s.Signed && raw < 0 {
		return uint64(int64(raw)) & mask(s.Length)
	}
	return uint64(raw) & mask(s.Length)
}

// Insert writes raw field bits into data, the inverse of Extract.
// data must already span the signal's bit range.
func (s *Signal) Insert(data []byte, raw uint64) {
	raw &= mask(s.Length)
	if s.Order == LittleEndian {
		insertLittle(data, s.StartBit, s.Length, raw)
		return
	}
	insertBig(data, s.StartBit, s.Length, raw)
}

func (s *Signal) bytesNeeded() int {
	if s.Order == LittleEndian {
		return int(s.StartBit+s.Length+7) / 8
	}
	// Big-endian start bit is the MSB position in DBC byte numbering:
	// bit 7 of byte 0 is position 0, bit 0 of byte 0 is position 7.
	first := int(s.StartBit/8)*8 + 7 - int(s.StartBit%8)
	last := first + int(s.Length) - 1
	return last/8 + 1
}

func extractLittle(data []byte, start, length uint8) uint64 {
	var word uint64
	for i := 0; i < len(data) && i < 8; i++ {
		word |= uint64(data[i]) << (8 * i)
	}
	return (word >> start) & mask(length)
}

func extractBig(data []byte, start, length uint8) uint64 {
	byteIdx := int(start / 8)
	bitIdx := int(start % 8)

	var result uint64
	for i := uint8(0); i < length; i++ {
		result <<= 1
		result |= uint64(data[byteIdx]>>bitIdx) & 1
		if bitIdx == 0 {
			bitIdx = 7
			byteIdx++
		} else {
			bitIdx--
		}
	}
	return result
}

func insertLittle(data []byte, start, length uint8, raw uint64) {
	for i := uint8(0); i < length; i++ {
		pos := start + i
		bit := (raw >> i) & 1
		data[pos/8] &^= 1 << (pos % 8)
		data[pos/8] |= byte(bit) << (pos % 8)
	}
}

func insertBig(data []byte, start, length uint8, raw uint64) {
	byteIdx := int(start / 8)
	bitIdx := int(start % 8)

	for i := int(length) - 1; i >= 0; i-- {
		bit := (raw >> uint(i)) & 1
		data[byteIdx] &^= 1 << bitIdx
		data[byteIdx] |= byte(bit) << bitIdx
		if bitIdx == 0 {
			bitIdx = 7
			byteIdx++
		} else {
			bitIdx--
		}
	}
}

func signExtend(raw uint64, length uint8) int64 {
	if length == 64 {
		return int64(raw)
	}
	if raw&(1<<(length-1)) != 0 {
		raw |= ^mask(length)
	}
	return int64(raw)
}

func mask(length uint8) uint64 {
	if length >= 64 {
		return ^uint64(0)
	}
	return (1 << length) - 1
}
