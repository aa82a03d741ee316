package canbus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

const (
	// Serial read timeout. Short enough that cancellation is observed
	// promptly between blocking reads.
	serialReadTimeout = 100 * time.Millisecond

	// Bounded reconnect policy after a mid-loop I/O error.
	reconnectAttempts = 5
	reconnectBackoff  = 2 * time.Second
)

// SerialConfig describes an SLCAN adapter connection.
type SerialConfig struct {
	Device  string // e.g. /dev/ttyACM0
	Baud    int    // serial line rate, default 115200
	Bitrate int    // CAN bit rate, default 500000
}

// SerialLink drives an SLCAN adapter over a serial port. It owns the
// device handle exclusively; all writers go through Send.
type SerialLink struct {
	log Logger
	cfg SerialConfig

	// dial opens and initializes the port. Swappable for tests.
	dial func() (io.ReadWriteCloser, error)

	attempts int
	backoff  time.Duration

	mu   sync.Mutex // guards port for writes and reopen
	port io.ReadWriteCloser
}

// OpenSerial opens the adapter and switches it onto the bus at the
// configured bit rate.
func OpenSerial(cfg SerialConfig, log Logger) (*SerialLink, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = 500000
	}

	l := &SerialLink{
		log:      log,
		cfg:      cfg,
		attempts: reconnectAttempts,
		backoff:  reconnectBackoff,
	}
	l.dial = l.dialSerial

	port, err := l.dial()
	if err != nil {
		return nil, &ConnectionError{Device: cfg.Device, Err: err}
	}
	l.port = port

	log.Info("SLCAN link open: %s at %d bit/s", cfg.Device, cfg.Bitrate)
	return l, nil
}

func (l *SerialLink) dialSerial() (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        l.cfg.Device,
		Baud:        l.cfg.Baud,
		ReadTimeout: serialReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := l.initAdapter(port); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// initAdapter runs the SLCAN open sequence: close any stale channel,
// set the bit rate, open.
func (l *SerialLink) initAdapter(w io.Writer) error {
	setup, err := slcanBitrateCommand(l.cfg.Bitrate)
	if err != nil {
		return err
	}
	for _, cmd := range []string{slcanClose, setup, slcanOpen} {
		if _, err := io.WriteString(w, cmd); err != nil {
			return fmt.Errorf("adapter setup: %w", err)
		}
	}
	return nil
}

// Send transmits one frame. Callers from any goroutine; writes are
// serialized by the link's mutex.
func (l *SerialLink) Send(f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return &ConnectionError{Device: l.cfg.Device, Err: fmt.Errorf("link closed")}
	}

	l.log.DebugCAN("TX", f.ID, f.Data[:], f.Length)
	if _, err := io.WriteString(l.port, encodeSLCAN(f)); err != nil {
		return fmt.Errorf("canbus: send: %w", err)
	}
	return nil
}

// ReceiveLoop reads frames until ctx is cancelled or reconnection is
// exhausted. Corrupt lines are logged and skipped; read errors
// trigger the bounded reconnect policy before a ConnectionError is
// surfaced.
func (l *SerialLink) ReceiveLoop(ctx context.Context, onFrame FrameHandler) error {
	buf := make([]byte, 256)
	line := make([]byte, 0, slcanMaxLine)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		port := l.port
		l.mu.Unlock()
		if port == nil {
			return &ConnectionError{Device: l.cfg.Device, Err: fmt.Errorf("link closed")}
		}

		n, err := port.Read(buf)
		if err != nil && err != io.EOF {
			l.log.Warn("serial read failed: %v", err)
			if err := l.reconnect(ctx); err != nil {
				return err
			}
			line = line[:0]
			continue
		}
		if n == 0 {
			// Read timeout: loop so cancellation is checked.
			continue
		}

		for _, b := range buf[:n] {
			switch b {
			case '\r', '\n':
				if len(line) > 0 {
					l.handleLine(string(line), onFrame)
					line = line[:0]
				}
			case slcanBell:
				l.log.Debug("adapter signalled command error")
				line = line[:0]
			default:
				if len(line) >= slcanMaxLine {
					l.log.Debug("dropping overlong slcan line")
					line = line[:0]
					continue
				}
				line = append(line, b)
			}
		}
	}
}

func (l *SerialLink) handleLine(line string, onFrame FrameHandler) {
	f, err := parseSLCAN(line, time.Now())
	if err == errNotAFrame {
		return
	}
	if err != nil {
		// Wire-level corruption: skip the frame, keep the stream.
		l.log.Debug("skipping corrupt frame: %v", err)
		return
	}
	l.log.DebugCAN("RX", f.ID, f.Data[:], f.Length)
	onFrame(f)
}

// reconnect closes the failed port and retries the dial a fixed
// number of times with a fixed backoff. Exhaustion is fatal for the
// receive loop.
func (l *SerialLink) reconnect(ctx context.Context) error {
	l.mu.Lock()
	if l.port != nil {
		l.port.Close()
		l.port = nil
	}
	l.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff):
		}

		l.log.Info("reconnecting %s (attempt %d/%d)", l.cfg.Device, attempt, l.attempts)
		port, err := l.dial()
		if err != nil {
			lastErr = err
			l.log.Warn("reconnect failed: %v", err)
			continue
		}

		l.mu.Lock()
		l.port = port
		l.mu.Unlock()
		l.log.Info("link restored: %s", l.cfg.Device)
		return nil
	}

	return &ConnectionError{
		Device: l.cfg.Device,
		Err:    fmt.Errorf("reconnect attempts exhausted: %w", lastErr),
	}
}

// Close shuts the adapter channel and releases the port.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return nil
	}
	io.WriteString(l.port, slcanClose)
	err := l.port.Close()
	l.port = nil
	return err
}
