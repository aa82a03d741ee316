// Package canbus owns the physical connection to the vehicle bus. Two
// link flavours are provided: a serial SLCAN adapter link and a native
// SocketCAN link. Both deliver the same Frame type to a single
// receive callback and serialize outbound writes.
package canbus

import (
	"context"
	"fmt"
	"time"

	"github.com/brutella/can"
)

const extendedIDFlag = 0x80000000

// Frame is one message unit on the bus: identifier, up to 8 payload
// bytes and the receipt timestamp. Frames are value types and never
// retained past one processing pass.
type Frame struct {
	ID       uint32
	Length   uint8
	Extended bool
	Data     [8]byte
	Time     time.Time
}

// NewFrame builds an outbound standard frame from id and data.
func NewFrame(id uint32, data []byte) Frame {
	f := Frame{ID: id, Length: uint8(len(data))}
	if len(data) > 8 {
		f.Length = 8
	}
	copy(f.Data[:], data)
	return f
}

// Payload returns the valid portion of the data bytes.
func (f Frame) Payload() []byte {
	if f.Length > 8 {
		return f.Data[:]
	}
	return f.Data[:f.Length]
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%03X [%d] % X", f.ID, f.Length, f.Payload())
}

// FrameHandler consumes one received frame. It runs on the link's
// receive goroutine and must not block.
type FrameHandler func(Frame)

// Link is the write half of a bus connection, shared by the decode
// pipeline and the diagnostic poller. Implementations serialize Send
// so at most one writer touches the device at a time.
type Link interface {
	Send(Frame) error
	Close() error
}

// ReceiveLink is a Link that also owns the inbound frame stream.
type ReceiveLink interface {
	Link

	// ReceiveLoop blocks delivering frames to onFrame until ctx is
	// cancelled or reconnection attempts are exhausted.
	ReceiveLoop(ctx context.Context, onFrame FrameHandler) error
}

// ConnectionError reports a device that could not be opened, or a
// link whose bounded reconnect attempts were exhausted.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("canbus: device %s: %v", e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func fromCAN(cf can.Frame, now time.Time) Frame {
	f := Frame{
		ID:       cf.ID &^ extendedIDFlag,
		Length:   cf.Length,
		Extended: cf.ID&extendedIDFlag != 0,
		Data:     cf.Data,
		Time:     now,
	}
	if f.Length > 8 {
		f.Length = 8
	}
	return f
}

func toCAN(f Frame) can.Frame {
	id := f.ID
	if f.Extended {
		id |= extendedIDFlag
	}
	return can.Frame{
		ID:     id,
		Length: f.Length,
		Data:   f.Data,
	}
}
