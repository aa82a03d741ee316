package obd

import (
	"context"
	"sync"
	"time"

	"dash-service/canbus"
	"dash-service/catalog"
	"dash-service/vehicle"
)

const (
	defaultInterval   = 50 * time.Millisecond
	defaultStaleAfter = 3
)

// Sender is the outbound half of a link.
type Sender interface {
	Send(canbus.Frame) error
}

// Config tunes the poll loop. Zero values pick the defaults above;
// a zero Timeout reuses Interval.
type Config struct {
	Interval   time.Duration
	Timeout    time.Duration
	StaleAfter int
	Parameters []Parameter

	// OnStale fires on every staleness transition, in both directions.
	OnStale func(name string, stale bool)
}

type paramState struct {
	def         Parameter
	guard       vehicle.StampGuard[float64]
	pending     uint64
	deadline    time.Time
	lastRequest time.Time
	lastSuccess time.Time
	timeouts    int
	stale       bool
}

// Scheduler sends one request per tick, round-robin across the
// configured parameters, and marks a parameter stale after
// consecutive unanswered requests.
type Scheduler struct {
	log      canbus.Logger
	sender   Sender
	bus      *vehicle.EventBus
	smoother *vehicle.Smoother
	cfg      Config

	mu     sync.Mutex
	params []*paramState
	byPID  map[byte]*paramState
	next   int
}

// NewScheduler wires the poll loop to a link and the event bus.
func NewScheduler(log canbus.Logger, sender Sender, bus *vehicle.EventBus, smoother *vehicle.Smoother, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.Parameters == nil {
		cfg.Parameters = StandardParameters()
	}

	s := &Scheduler{
		log:      log,
		sender:   sender,
		bus:      bus,
		smoother: smoother,
		cfg:      cfg,
		byPID:    make(map[byte]*paramState),
	}
	for _, def := range cfg.Parameters {
		p := &paramState{def: def}
		s.params = append(s.params, p)
		s.byPID[def.PID] = p
	}
	return s
}

// ResponseIDs lists the frame ids the scheduler wants routed to it.
func (s *Scheduler) ResponseIDs() []uint32 {
	return []uint32{ResponseECU, ResponseTCM}
}

// Run issues requests on the configured cadence until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// tick expires overdue requests, then sends the next eligible one.
// OnStale may block on IPC, so it is never invoked with the mutex
// held.
func (s *Scheduler) tick(now time.Time) {
	var staled []string

	s.mu.Lock()
	for _, p := range s.params {
		if p.pending == 0 || now.Before(p.deadline) {
			continue
		}
		// Reissue the stamp so a reply arriving after this point is
		// dropped as superseded.
		p.guard.Issue()
		p.pending = 0
		p.timeouts++
		if p.timeouts >= s.cfg.StaleAfter && !p.stale {
			p.stale = true
			s.log.Warn("OBD %s unresponsive after %d timeouts, marking stale", p.def.Name, p.timeouts)
			s.bus.Publish(p.def.Channel, catalog.Invalid(), now)
			staled = append(staled, p.def.Name)
		}
	}

	if p := s.pickNext(now); p != nil {
		p.pending = p.guard.Issue()
		p.lastRequest = now
		p.deadline = now.Add(s.cfg.Timeout)
		if err := s.sender.Send(RequestFrame(p.def.PID)); err != nil {
			p.pending = 0
			s.log.Warn("OBD request for %s failed: %v", p.def.Name, err)
		}
	}
	s.mu.Unlock()

	if s.cfg.OnStale != nil {
		for _, name := range staled {
			s.cfg.OnStale(name, true)
		}
	}
}

// pickNext walks the parameter list round-robin and returns the first
// one that is idle and past its minimum interval.
func (s *Scheduler) pickNext(now time.Time) *paramState {
	n := len(s.params)
	for i := 0; i < n; i++ {
		p := s.params[(s.next+i)%n]
		if p.pending != 0 {
			continue
		}
		if p.def.MinInterval > 0 && now.Sub(p.lastRequest) < p.def.MinInterval {
			continue
		}
		s.next = (s.next + i + 1) % n
		return p
	}
	return nil
}

// HandleResponse consumes a reply frame routed from the receive loop.
func (s *Scheduler) HandleResponse(f canbus.Frame) {
	pid, data, ok := ParseResponse(f)
	if !ok {
		return
	}

	s.mu.Lock()
	p := s.byPID[pid]
	if p == nil || p.pending == 0 || len(data) < p.def.Bytes {
		s.mu.Unlock()
		return
	}
	stamp := p.pending
	s.mu.Unlock()

	value := p.def.Decode(data[:p.def.Bytes])
	now := f.Time
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	if _, ok := p.guard.Accept(vehicle.StampedResult[float64]{Stamp: stamp, Value: value}); !ok {
		s.mu.Unlock()
		return
	}
	p.pending = 0
	p.timeouts = 0
	p.lastSuccess = now
	recovered := p.stale
	if p.stale {
		p.stale = false
		s.log.Info("OBD %s responding again", p.def.Name)
	}

	y := value
	if s.smoother != nil {
		y = s.smoother.Update(p.def.Channel, value)
	}
	s.bus.Publish(p.def.Channel, catalog.Float(y), now)
	if pid == PIDCoolantTemp {
		s.bus.Publish("coolant-percent", catalog.Float(CoolantPercent(y)), now)
	}
	s.mu.Unlock()

	if recovered && s.cfg.OnStale != nil {
		s.cfg.OnStale(p.def.Name, false)
	}
}
