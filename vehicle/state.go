package vehicle

// Gear is the derived transmission state shown on the dashboard.
type Gear int

const (
	GearUnknown Gear = iota
	GearPark
	GearReverse
	GearNeutral
	GearDrive
	GearSport
	GearLow
)

func (g Gear) String() string {
	switch g {
	case GearPark:
		return "park"
	case GearReverse:
		return "reverse"
	case GearNeutral:
		return "neutral"
	case GearDrive:
		return "drive"
	case GearSport:
		return "sport"
	case GearLow:
		return "low"
	default:
		return "unknown"
	}
}

// Transmission mode codes from the ENGINE_RPM1 broadcast. Code 0x00
// is shared by park and neutral; the selector nibble disambiguates.
const (
	gearModeParkNeutral = 0x00
	neutralSelectCode   = 4
)

var gearModes = map[int64]Gear{
	0x01: GearDrive,
	0x02: GearSport,
	0x03: GearLow,
	0x07: GearReverse,
}

// GearFromCodes maps the transmission mode code and the secondary
// selector nibble to a gear. Unrecognized codes map to GearUnknown
// rather than failing.
func GearFromCodes(mode, selector int64) Gear {
	if mode == gearModeParkNeutral {
		if selector == neutralSelectCode {
			return GearNeutral
		}
		return GearPark
	}
	if g, ok := gearModes[mode]; ok {
		return g
	}
	return GearUnknown
}

// TurnSignal is the derived indicator state.
type TurnSignal int

const (
	TurnSignalOff TurnSignal = iota
	TurnSignalLeft
	TurnSignalRight
	TurnSignalHazard
)

func (t TurnSignal) String() string {
	switch t {
	case TurnSignalLeft:
		return "left"
	case TurnSignalRight:
		return "right"
	case TurnSignalHazard:
		return "hazard"
	default:
		return "off"
	}
}

// TurnSignalFromInputs maps the instantaneous indicator pair to a
// state. Level-triggered: both lamps active reads as hazard, which is
// how the body ECU reports the hazard switch. The published state
// always reflects the current pair, never history.
func TurnSignalFromInputs(left, right bool) TurnSignal {
	switch {
	case left && right:
		return TurnSignalHazard
	case left:
		return TurnSignalLeft
	case right:
		return TurnSignalRight
	default:
		return TurnSignalOff
	}
}
