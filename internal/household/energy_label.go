package household

import (
	"fmt"
	"strings"
)

// EnergyLabel is a coarse building-efficiency class, a (best) to e (worst).
type EnergyLabel int

const (
	LabelUnknown EnergyLabel = iota
	LabelA
	LabelB
	LabelC
	LabelD
	LabelE
)

// Annual heat loss constants per label: base kWh and an area term in kWh·m².
var lossConstants = map[EnergyLabel][2]float64{
	LabelA: {29, 1000},
	LabelB: {69, 2200},
	LabelC: {109, 3200},
	LabelD: {149, 4200},
	LabelE: {189, 5200},
}

func (l EnergyLabel) Valid() bool {
	_, ok := lossConstants[l]
	return ok
}

func (l EnergyLabel) String() string {
	switch l {
	case LabelA:
		return "a"
	case LabelB:
		return "b"
	case LabelC:
		return "c"
	case LabelD:
		return "d"
	case LabelE:
		return "e"
	default:
		return "unknown"
	}
}

// LossConstants returns (baseLossConstant, areaLossConstant).
func (l EnergyLabel) LossConstants() (float64, float64) {
	c := lossConstants[l]
	return c[0], c[1]
}

func ParseEnergyLabel(s string) (EnergyLabel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return LabelA, nil
	case "b":
		return LabelB, nil
	case "c":
		return LabelC, nil
	case "d":
		return LabelD, nil
	case "e":
		return LabelE, nil
	default:
		return LabelUnknown, fmt.Errorf("%w: %q", ErrInvalidEnergyLabel, s)
	}
}
