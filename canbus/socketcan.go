package canbus

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/can"
)

// SocketLink drives a native SocketCAN interface (can0 style device
// names) through brutella/can, presenting the same ReceiveLink shape
// as the serial adapter.
type SocketLink struct {
	log    Logger
	ifname string
	bus    *can.Bus
	mu     sync.Mutex // serializes Publish calls
}

// OpenSocket binds to a SocketCAN network interface.
func OpenSocket(ifname string, log Logger) (*SocketLink, error) {
	bus, err := can.NewBusForInterfaceWithName(ifname)
	if err != nil {
		return nil, &ConnectionError{Device: ifname, Err: err}
	}

	log.Info("SocketCAN link open: %s", ifname)
	return &SocketLink{log: log, ifname: ifname, bus: bus}, nil
}

// Send publishes one frame on the interface.
func (l *SocketLink) Send(f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.DebugCAN("TX", f.ID, f.Data[:], f.Length)
	return l.bus.Publish(toCAN(f))
}

type socketHandler struct {
	link    *SocketLink
	onFrame FrameHandler
}

func (h socketHandler) Handle(cf can.Frame) {
	f := fromCAN(cf, time.Now())
	h.link.log.DebugCAN("RX", f.ID, f.Data[:], f.Length)
	h.onFrame(f)
}

// ReceiveLoop subscribes onFrame and blocks until ctx is cancelled or
// the kernel socket fails. SocketCAN reconnection is left to the
// interface layer; a failed socket surfaces as a ConnectionError.
func (l *SocketLink) ReceiveLoop(ctx context.Context, onFrame FrameHandler) error {
	l.bus.Subscribe(socketHandler{link: l, onFrame: onFrame})

	errc := make(chan error, 1)
	go func() {
		errc <- l.bus.ConnectAndPublish()
	}()

	select {
	case <-ctx.Done():
		l.bus.Disconnect()
		return ctx.Err()
	case err := <-errc:
		if err != nil {
			return &ConnectionError{Device: l.ifname, Err: err}
		}
		return nil
	}
}

// Close disconnects from the interface.
func (l *SocketLink) Close() error {
	return l.bus.Disconnect()
}
