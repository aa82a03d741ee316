package vehicle

import (
	"errors"

	"dash-service/canbus"
	"dash-service/catalog"
)

// Pipeline is the per-frame hot path: diagnostic replies are routed
// to their registered responder, everything else goes through the
// signal catalog, the state engine, and out onto the event bus.
type Pipeline struct {
	log        canbus.Logger
	catalog    *catalog.Catalog
	bus        *EventBus
	engine     *StateEngine
	smoother   *Smoother
	responders map[uint32]func(canbus.Frame)

	// channels maps a catalog signal name to the bus channel it
	// publishes on. Signals without an entry feed the state engine
	// only.
	channels map[string]string
}

// NewPipeline assembles the decode path. channels may be nil.
func NewPipeline(log canbus.Logger, cat *catalog.Catalog, bus *EventBus, engine *StateEngine, smoother *Smoother, channels map[string]string) *Pipeline {
	return &Pipeline{
		log:        log,
		catalog:    cat,
		bus:        bus,
		engine:     engine,
		smoother:   smoother,
		responders: make(map[uint32]func(canbus.Frame)),
		channels:   channels,
	}
}

// Route registers a responder for a frame id, bypassing the catalog.
func (p *Pipeline) Route(id uint32, fn func(canbus.Frame)) {
	p.responders[id] = fn
}

// HandleFrame processes one received frame. It is called from the
// link's receive loop and must not block.
func (p *Pipeline) HandleFrame(f canbus.Frame) {
	if fn, ok := p.responders[f.ID]; ok {
		fn(f)
		return
	}

	values, err := p.catalog.Decode(f.ID, f.Payload())
	if err != nil {
		var derr *catalog.DecodeError
		if errors.As(err, &derr) {
			p.log.Debug("Skipping frame 0x%03X: %v", f.ID, err)
			return
		}
		p.log.Warn("Decode of frame 0x%03X failed: %v", f.ID, err)
		return
	}
	if len(values) == 0 {
		return
	}

	p.engine.Apply(values, f.Time)

	for signal, v := range values {
		channel, ok := p.channels[signal]
		if !ok {
			continue
		}
		// A configured alpha filters the channel no matter what kind
		// the signal decodes to. Enum channels are never filtered.
		if p.smoother != nil && v.Valid() && v.Kind != catalog.KindEnum {
			if v.Kind == catalog.KindFloat || p.smoother.Designated(channel) {
				v = catalog.Float(p.smoother.Update(channel, v.Num))
			}
		}
		p.bus.Publish(channel, v, f.Time)
	}
}
