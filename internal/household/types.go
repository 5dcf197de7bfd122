package household

import (
	"fmt"
	"strings"
	"time"
)

// Kind is an integer enum of the supported appliance variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindOven
	KindDryer
	KindHeatpump
)

func (k Kind) Valid() bool {
	return k == KindOven || k == KindDryer || k == KindHeatpump
}

func (k Kind) String() string {
	switch k {
	case KindOven:
		return "oven"
	case KindDryer:
		return "dryer"
	case KindHeatpump:
		return "heatpump"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oven":
		return KindOven, nil
	case "dryer":
		return KindDryer, nil
	case "heatpump", "heat_pump":
		return KindHeatpump, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// CycleRange bounds a cycle duration, in minutes.
type CycleRange struct {
	Min int
	Max int
}

func (r CycleRange) Valid() bool {
	return r.Min > 0 && r.Max >= r.Min
}

// ApplianceState is a read-only view of an appliance's runtime state.
type ApplianceState struct {
	PowerState  bool
	PowerLocked bool
	CycleEnd    time.Time // zero when no cycle was ever started
	CycleCount  int
}

// Output is what an appliance contributes to one house tick.
type Output struct {
	PowerState    bool
	Draw          float64 // kW
	HeatingEnergy float64 // kJ
}

// Reading is the aggregate produced by House.Tick.
type Reading struct {
	PowerStates []bool
	TotalDraw   float64 // kW
	Temperature float64 // °C
	Time        int64   // unix seconds
}

// Bitmask maps PowerStates to bit i = appliances[i].
func (r Reading) Bitmask() uint8 {
	var mask uint8
	for i, on := range r.PowerStates {
		if on && i < 8 {
			mask |= 1 << i
		}
	}
	return mask
}
