package vehicle

import (
	"time"

	"dash-service/catalog"
)

// Catalog signal names the state engine watches. They match the
// shipped signal database.
const (
	SignalTransMode  = "TRANS_MODE"
	SignalGearSelect = "GEAR_SELECT"
	SignalLeftTurn   = "LEFT_SIGNAL_STATUS"
	SignalRightTurn  = "RIGHT_SIGNAL_STATUS"
)

// Published channel names for derived state.
const (
	ChannelGear       = "gear"
	ChannelTurnSignal = "turn-signal"
)

// doorChannels maps door status signals to their published channels.
// The raw signal is 1 when the door is open.
var doorChannels = map[string]string{
	"DOOR_FL_STATUS":        "door:front-left",
	"DOOR_FR_STATUS":        "door:front-right",
	"DOOR_RL_STATUS":        "door:rear-left",
	"DOOR_RR_STATUS":        "door:rear-right",
	"DOOR_BACK_DOOR_STATUS": "door:trunk",
}

// StateEngine folds decoded signals into derived dashboard state and
// publishes it. State is owned by the single receive goroutine; every
// qualifying decode is applied synchronously before the next frame,
// and decodes that touch none of the watched signals are no-ops.
type StateEngine struct {
	bus *EventBus

	gear       Gear
	turn       TurnSignal
	left       bool
	right      bool
	gearSelect int64
}

func NewStateEngine(bus *EventBus) *StateEngine {
	return &StateEngine{bus: bus}
}

// Gear returns the current derived gear.
func (e *StateEngine) Gear() Gear {
	return e.gear
}

// TurnSignal returns the current derived indicator state.
func (e *StateEngine) TurnSignal() TurnSignal {
	return e.turn
}

// Apply folds one decode result into the derived state. Transition
// functions are total over the latest known value of each watched
// input; no global ordering across inputs is assumed.
func (e *StateEngine) Apply(values map[string]catalog.Value, ts time.Time) {
	if v, ok := values[SignalGearSelect]; ok {
		e.gearSelect = v.Raw
	}
	if v, ok := values[SignalTransMode]; ok {
		e.gear = GearFromCodes(v.Raw, e.gearSelect)
		e.bus.Publish(ChannelGear, catalog.Enum(int64(e.gear), e.gear.String()), ts)
	}

	turnTouched := false
	if v, ok := values[SignalLeftTurn]; ok {
		e.left = v.Raw != 0
		turnTouched = true
	}
	if v, ok := values[SignalRightTurn]; ok {
		e.right = v.Raw != 0
		turnTouched = true
	}
	if turnTouched {
		e.turn = TurnSignalFromInputs(e.left, e.right)
		e.bus.Publish(ChannelTurnSignal, catalog.Enum(int64(e.turn), e.turn.String()), ts)
	}

	for sig, channel := range doorChannels {
		if v, ok := values[sig]; ok {
			open := int64(0)
			if v.Raw != 0 {
				open = 1
			}
			tag := "closed"
			if open == 1 {
				tag = "open"
			}
			e.bus.Publish(channel, catalog.Enum(open, tag), ts)
		}
	}
}
