package household

import "time"

// Appliance is a closed set of load variants: Oven, Dryer and Heatpump.
type Appliance interface {
	Kind() Kind
	Controllable() bool
	SetPowerLock(locked bool) error
	State() ApplianceState

	tick(last, now time.Time, temperature float64) Output
}

type CycleParams struct {
	PowerUsage          float64 // kW, nominal
	PowerFluctuation    float64 // fraction in [0, 1)
	Controllable        bool
	Coefficients        Polynomial
	AllowedCyclesPerDay int // <= 0 means unlimited
	CycleDuration       CycleRange
	Rand                *RandomSource
}

func (p *CycleParams) Validate() error {
	if p.PowerUsage < 0 {
		return ErrInvalidPowerUsage
	}
	if p.PowerFluctuation < 0 || p.PowerFluctuation >= 1 {
		return ErrInvalidFluctuation
	}
	if !p.CycleDuration.Valid() {
		return ErrInvalidCycleRange
	}
	return nil
}

// cycler is the polynomial-driven duty cycle shared by Oven and Dryer.
type cycler struct {
	params CycleParams
	rng    *RandomSource

	powerState  bool
	powerLocked bool
	cycleEnd    time.Time
	cycleCount  int
}

func newCycler(params CycleParams) (cycler, error) {
	if err := params.Validate(); err != nil {
		return cycler{}, err
	}
	rng := params.Rand
	if rng == nil {
		rng = NewUnseededRandomSource()
	}
	params.Rand = nil
	params.Coefficients = append(Polynomial(nil), params.Coefficients...)
	return cycler{params: params, rng: rng}, nil
}

func (c *cycler) Controllable() bool {
	return c.params.Controllable
}

func (c *cycler) SetPowerLock(locked bool) error {
	if !c.params.Controllable {
		return ErrNotControllable
	}
	c.powerLocked = locked
	if locked {
		c.powerState = false
	}
	return nil
}

func (c *cycler) State() ApplianceState {
	return ApplianceState{
		PowerState:  c.powerState,
		PowerLocked: c.powerLocked,
		CycleEnd:    c.cycleEnd,
		CycleCount:  c.cycleCount,
	}
}

func (c *cycler) hasCyclesLeft() bool {
	return c.params.AllowedCyclesPerDay <= 0 || c.cycleCount < c.params.AllowedCyclesPerDay
}

func (c *cycler) updateState(last, now time.Time) {
	if !sameDay(last, now) {
		c.cycleCount = 0
	}

	if !c.cycleEnd.IsZero() && now.Before(c.cycleEnd) {
		c.powerState = !c.powerLocked
		return
	}

	c.powerState = false
	if c.powerLocked || !c.hasCyclesLeft() {
		return
	}

	if !c.rng.Bernoulli(c.params.Coefficients.Sample(sampleHour(now))) {
		return
	}
	minutes := c.rng.IntRange(c.params.CycleDuration.Min, c.params.CycleDuration.Max)
	c.powerState = true
	c.cycleCount++
	c.cycleEnd = now.Add(time.Duration(minutes) * time.Minute)
}

func (c *cycler) tick(last, now time.Time, _ float64) Output {
	c.updateState(last, now)
	if !c.powerState {
		return Output{}
	}
	return Output{
		PowerState: true,
		Draw:       c.rng.Fluctuate(c.params.PowerUsage, c.params.PowerFluctuation),
	}
}

type Oven struct {
	cycler
}

func NewOven(params CycleParams) (*Oven, error) {
	c, err := newCycler(params)
	if err != nil {
		return nil, err
	}
	return &Oven{cycler: c}, nil
}

func (*Oven) Kind() Kind { return KindOven }

type Dryer struct {
	cycler
}

func NewDryer(params CycleParams) (*Dryer, error) {
	c, err := newCycler(params)
	if err != nil {
		return nil, err
	}
	return &Dryer{cycler: c}, nil
}

func (*Dryer) Kind() Kind { return KindDryer }
