package household

import (
	"math"
	"time"
)

// Stabilizer band around the target temperature, as fractions of the target.
const (
	stabilizerLow      = 0.998
	stabilizerHigh     = 1.025
	stabilizerPrevHigh = 1.01
	stabilizerStep     = 0.035
)

type HeatpumpParams struct {
	PowerUsage         float64 // kW, nominal
	PowerFluctuation   float64
	TargetTemperature  float64
	HeatingMultiplier  float64 // heat delivered per unit of electrical energy
	HeatingFluctuation float64
	Rand               *RandomSource
}

func (p *HeatpumpParams) Validate() error {
	if p.PowerUsage < 0 {
		return ErrInvalidPowerUsage
	}
	if p.HeatingMultiplier < 0 {
		return ErrInvalidMultiplier
	}
	if p.PowerFluctuation < 0 || p.PowerFluctuation >= 1 ||
		p.HeatingFluctuation < 0 || p.HeatingFluctuation >= 1 {
		return ErrInvalidFluctuation
	}
	return nil
}

// StabilizerState is the heatpump's secondary controller state.
type StabilizerState struct {
	LastDraw        float64
	LastTemperature float64 // NaN before the first tick
	Stabilizing     bool
	StabilizedDraw  float64
}

// Heatpump is a controllable, thermostat-driven load. It ignores the polynomial
// cycle model.
type Heatpump struct {
	params HeatpumpParams
	rng    *RandomSource

	powerState  bool
	powerLocked bool

	stab StabilizerState
}

func NewHeatpump(params HeatpumpParams) (*Heatpump, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	rng := params.Rand
	if rng == nil {
		rng = NewUnseededRandomSource()
	}
	params.Rand = nil
	return &Heatpump{
		params: params,
		rng:    rng,
		stab:   StabilizerState{LastTemperature: math.NaN()},
	}, nil
}

func (*Heatpump) Kind() Kind { return KindHeatpump }

func (*Heatpump) Controllable() bool { return true }

func (h *Heatpump) SetPowerLock(locked bool) error {
	h.powerLocked = locked
	if locked {
		h.powerState = false
	}
	return nil
}

func (h *Heatpump) State() ApplianceState {
	return ApplianceState{PowerState: h.powerState, PowerLocked: h.powerLocked}
}

func (h *Heatpump) StabilizerState() StabilizerState {
	return h.stab
}

func (h *Heatpump) TargetTemperature() float64 {
	return h.params.TargetTemperature
}

// SetTargetTemperature changes the thermostat target between ticks.
func (h *Heatpump) SetTargetTemperature(target float64) {
	h.params.TargetTemperature = target
}

func (h *Heatpump) inStabilizerBand(temperature float64) bool {
	target := h.params.TargetTemperature
	if math.IsNaN(h.stab.LastTemperature) {
		return false
	}
	return temperature >= target*stabilizerLow &&
		temperature <= target*stabilizerHigh &&
		h.stab.LastTemperature < target*stabilizerPrevHigh
}

func (h *Heatpump) stabilizedDraw(temperature float64) float64 {
	switch {
	case temperature > h.stab.LastTemperature:
		return h.stab.LastDraw * (1 - stabilizerStep)
	case temperature < h.stab.LastTemperature:
		return h.stab.LastDraw * (1 + stabilizerStep)
	default:
		return h.stab.LastDraw
	}
}

func (h *Heatpump) thermostatDraw(temperature float64) float64 {
	if temperature >= h.params.TargetTemperature {
		return 0
	}
	return h.rng.Fluctuate(h.params.PowerUsage, h.params.PowerFluctuation)
}

func (h *Heatpump) tick(last, now time.Time, temperature float64) Output {
	var draw float64

	h.stab.Stabilizing = !h.powerLocked && h.inStabilizerBand(temperature)
	switch {
	case h.powerLocked:
		draw = 0
	case h.stab.Stabilizing && h.stab.LastDraw > 0:
		draw = h.stabilizedDraw(temperature)
		h.stab.StabilizedDraw = draw
	case h.stab.Stabilizing:
		// nothing to nudge yet, start from the thermostat output
		draw = h.thermostatDraw(temperature)
		h.stab.StabilizedDraw = draw
	default:
		draw = h.thermostatDraw(temperature)
	}

	h.powerState = draw > 0
	h.stab.LastDraw = draw
	h.stab.LastTemperature = temperature

	if draw == 0 {
		return Output{}
	}
	elapsed := now.Sub(last).Seconds()
	energy := draw * elapsed * h.params.HeatingMultiplier
	return Output{
		PowerState:    true,
		Draw:          draw,
		HeatingEnergy: h.rng.Fluctuate(energy, h.params.HeatingFluctuation),
	}
}
