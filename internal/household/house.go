package household

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// kg of air per cubic meter.
	airDensity = 1.219
	// kJ needed to heat one kg of air by one degree.
	airSpecificHeat = 1.005
	kJPerKWh        = 3600
	secondsPerDay   = 24 * 60 * 60
	maxAppliances   = 8
)

type BackgroundParams struct {
	Coefficients Polynomial // kW by hour of day
	Fluctuation  float64
}

type HouseParams struct {
	EnergyLabel          EnergyLabel
	SquareMeters         float64
	WallHeightMeters     float64
	StartTemperature     float64
	StartTime            int64 // unix seconds
	ActiveDaysPerYear    int
	Background           BackgroundParams
	RandomHeatLossChance float64
	Location             *time.Location // calendar used for day boundaries, UTC when nil
	Rand                 *RandomSource
}

func (p *HouseParams) Validate() error {
	if !p.EnergyLabel.Valid() {
		return ErrInvalidEnergyLabel
	}
	if p.SquareMeters <= 0 || p.WallHeightMeters <= 0 {
		return ErrInvalidDimensions
	}
	if p.ActiveDaysPerYear < 1 || p.ActiveDaysPerYear > 366 {
		return ErrInvalidActiveDays
	}
	if p.Background.Fluctuation < 0 || p.Background.Fluctuation >= 1 {
		return ErrInvalidFluctuation
	}
	if p.RandomHeatLossChance < 0 || p.RandomHeatLossChance > 1 {
		return ErrInvalidProbability
	}
	return nil
}

// House aggregates appliances, the building thermal state and the background load.
// It is not safe for concurrent use: callers serialise Tick and the setters.
type House struct {
	params     HouseParams
	rng        *RandomSource
	loc        *time.Location
	appliances []Appliance

	airMassKg   float64
	temperature float64
	time        int64
	lastTick    int64
}

func NewHouse(params HouseParams, appliances ...Appliance) (*House, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(appliances) > maxAppliances {
		return nil, ErrTooManyAppliances
	}
	for _, a := range appliances {
		if a == nil {
			return nil, ErrNilAppliance
		}
	}

	h := &House{
		params:      params,
		rng:         params.Rand,
		loc:         params.Location,
		appliances:  append([]Appliance(nil), appliances...),
		airMassKg:   params.SquareMeters * params.WallHeightMeters * airDensity,
		temperature: params.StartTemperature,
		time:        params.StartTime,
		lastTick:    params.StartTime,
	}
	if h.rng == nil {
		h.rng = NewUnseededRandomSource()
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	h.params.Rand = nil
	h.params.Background.Coefficients = append(Polynomial(nil), params.Background.Coefficients...)
	return h, nil
}

func (h *House) Time() int64 { return h.time }

func (h *House) LastTickTime() int64 { return h.lastTick }

func (h *House) Temperature() float64 { return h.temperature }

func (h *House) AirMassKg() float64 { return h.airMassKg }

func (h *House) EnergyLabel() EnergyLabel { return h.params.EnergyLabel }

func (h *House) Location() *time.Location { return h.loc }

// Appliances returns the appliances in bitmask order.
func (h *House) Appliances() []Appliance {
	return append([]Appliance(nil), h.appliances...)
}

func (h *House) AdvanceTime(deltaSeconds int64) error {
	if deltaSeconds < 0 {
		return ErrTimeTravel
	}
	h.time += deltaSeconds
	return nil
}

// SetTime adopts unixTime only when it is strictly newer than the house clock.
func (h *House) SetTime(unixTime int64) bool {
	if unixTime <= h.time {
		return false
	}
	h.time = unixTime
	return true
}

func (h *House) SetPowerLock(index int, locked bool) error {
	if index < 0 || index >= len(h.appliances) {
		return ErrUnknownAppliance
	}
	return h.appliances[index].SetPowerLock(locked)
}

func (h *House) kJToCelsius(kj float64) float64 {
	return kj / (airSpecificHeat * h.airMassKg)
}

// HeatLossPerMinute is the envelope loss in °C per simulated minute.
func (h *House) HeatLossPerMinute() float64 {
	base, area := h.params.EnergyLabel.LossConstants()
	kWhYear := base + area/h.params.SquareMeters
	kWhMinute := kWhYear / float64(h.params.ActiveDaysPerYear*24*60)
	return h.kJToCelsius(kWhMinute * kJPerKWh)
}

// HeatGain converts heating energy in kJ to a temperature rise in °C.
func (h *House) HeatGain(kj float64) float64 {
	return h.kJToCelsius(kj)
}

func (h *House) Tick() (Reading, error) {
	if h.time < h.lastTick {
		return Reading{}, ErrTimeTravel
	}
	last := time.Unix(h.lastTick, 0).In(h.loc)
	now := time.Unix(h.time, 0).In(h.loc)
	minutes := float64(h.time-h.lastTick) / 60

	states := make([]bool, len(h.appliances))
	var draw, heating float64
	for i, a := range h.appliances {
		out := a.tick(last, now, h.temperature)
		states[i] = out.PowerState
		draw += out.Draw
		heating += out.HeatingEnergy
	}

	h.temperature += h.HeatGain(heating) - h.HeatLossPerMinute()*minutes
	if h.rng.Bernoulli(h.params.RandomHeatLossChance) {
		h.temperature -= h.rng.Uniform(0, 1)
	}

	background := h.backgroundMean(last, now)
	draw += h.rng.Fluctuate(background, h.params.Background.Fluctuation)

	h.lastTick = h.time
	return Reading{
		PowerStates: states,
		TotalDraw:   draw,
		Temperature: h.temperature,
		Time:        h.time,
	}, nil
}

// backgroundMean averages the background curve over [from, to] at one-second
// resolution. Intervals crossing midnight are split into a segment ending at day
// end and one starting at day start so the hour of day never wraps inside a span.
func (h *House) backgroundMean(from, to time.Time) float64 {
	var sum, weight float64
	add := func(startSec, endSec, times int) {
		mean, n := h.segmentMean(startSec, endSec)
		sum += mean * float64(n*times)
		weight += float64(n * times)
	}

	start, end := secondOfDay(from), secondOfDay(to)
	if sameDay(from, to) {
		add(start, end, 1)
	} else {
		add(start, secondsPerDay, 1)
		if days := fullDaysBetween(from, to); days > 0 {
			add(0, secondsPerDay, days)
		}
		add(0, end, 1)
	}

	if weight == 0 {
		return 0
	}
	return max(sum/weight, 0)
}

func (h *House) segmentMean(startSec, endSec int) (float64, int) {
	n := endSec - startSec + 1
	var points []float64
	if n < 2 {
		points = []float64{float64(startSec) / 3600}
	} else {
		points = floats.Span(make([]float64, n), float64(startSec)/3600, float64(endSec)/3600)
	}
	for i, x := range points {
		points[i] = h.params.Background.Coefficients.Sample(x)
	}
	return stat.Mean(points, nil), len(points)
}

func fullDaysBetween(from, to time.Time) int {
	y, m, d := from.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, from.Location()).AddDate(0, 0, 1)
	days := 0
	for !sameDay(day, to) && day.Before(to) {
		days++
		day = day.AddDate(0, 0, 1)
	}
	return days
}
