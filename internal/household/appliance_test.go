package household

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOven(t *testing.T, opts ...func(*CycleParams)) *Oven {
	t.Helper()
	p := CycleParams{
		PowerUsage:          1.1,
		PowerFluctuation:    0.02,
		Coefficients:        Polynomial{1},
		AllowedCyclesPerDay: 1,
		CycleDuration:       CycleRange{Min: 30, Max: 120},
		Rand:                NewRandomSource(11),
	}
	for _, opt := range opts {
		opt(&p)
	}
	o, err := NewOven(p)
	require.NoError(t, err)
	return o
}

func TestCycleParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params CycleParams
		want   error
	}{
		{"valid", CycleParams{PowerUsage: 1, CycleDuration: CycleRange{30, 120}}, nil},
		{"negative power", CycleParams{PowerUsage: -1, CycleDuration: CycleRange{30, 120}}, ErrInvalidPowerUsage},
		{"fluctuation of one", CycleParams{PowerFluctuation: 1, CycleDuration: CycleRange{30, 120}}, ErrInvalidFluctuation},
		{"negative fluctuation", CycleParams{PowerFluctuation: -0.1, CycleDuration: CycleRange{30, 120}}, ErrInvalidFluctuation},
		{"inverted range", CycleParams{CycleDuration: CycleRange{120, 30}}, ErrInvalidCycleRange},
		{"zero range", CycleParams{CycleDuration: CycleRange{0, 0}}, ErrInvalidCycleRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.params.Validate()
			if got != tt.want {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetPowerLockNotControllable(t *testing.T) {
	o := newTestOven(t)
	before := o.State()

	err := o.SetPowerLock(true)

	assert.True(t, errors.Is(err, ErrNotControllable))
	assert.Equal(t, before, o.State())
}

func TestOvenSingleCycleWithinRange(t *testing.T) {
	o := newTestOven(t)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	onMinutes, segments := 0, 0
	prevOn := false
	last := start
	for i := 1; i < 24*60; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		out := o.tick(last, now, 0)
		if out.PowerState {
			onMinutes++
			assert.InDelta(t, 1.1, out.Draw, 1.1*0.02)
			if !prevOn {
				segments++
			}
		} else {
			assert.Zero(t, out.Draw)
		}
		assert.LessOrEqual(t, o.State().CycleCount, 1)
		prevOn = out.PowerState
		last = now
	}

	assert.Equal(t, 1, segments)
	assert.GreaterOrEqual(t, onMinutes, 30)
	assert.LessOrEqual(t, onMinutes, 120)
}

func TestOvenNeverStartsWithZeroProbability(t *testing.T) {
	o := newTestOven(t, func(p *CycleParams) { p.Coefficients = Polynomial{0} })
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 1; i < 24*60; i++ {
		out := o.tick(start.Add(time.Duration(i-1)*time.Minute), start.Add(time.Duration(i)*time.Minute), 0)
		assert.False(t, out.PowerState)
	}
	assert.Zero(t, o.State().CycleCount)
}

func TestCycleCountResetsOnNewDay(t *testing.T) {
	o := newTestOven(t, func(p *CycleParams) { p.CycleDuration = CycleRange{Min: 30, Max: 30} })
	start := time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC)

	last := start
	for i := 1; i < 60; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		o.tick(last, now, 0)
		last = now
	}
	require.Equal(t, 1, o.State().CycleCount)
	require.False(t, o.State().PowerState)

	midnight := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	out := o.tick(last, midnight, 0)

	assert.True(t, out.PowerState)
	assert.Equal(t, 1, o.State().CycleCount)
}

func TestUnlimitedCycles(t *testing.T) {
	d, err := NewDryer(CycleParams{
		PowerUsage:          1.47,
		Coefficients:        Polynomial{1},
		AllowedCyclesPerDay: 0,
		CycleDuration:       CycleRange{Min: 1, Max: 1},
		Rand:                NewRandomSource(5),
	})
	require.NoError(t, err)

	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	last := start
	for i := 1; i <= 10; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		out := d.tick(last, now, 0)
		assert.True(t, out.PowerState)
		last = now
	}
	assert.Equal(t, 10, d.State().CycleCount)
	assert.Equal(t, KindDryer, d.Kind())
}

func TestLockDominatesCycle(t *testing.T) {
	o := newTestOven(t, func(p *CycleParams) {
		p.Controllable = true
		p.CycleDuration = CycleRange{Min: 60, Max: 60}
	})
	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	out := o.tick(start, start.Add(time.Minute), 0)
	require.True(t, out.PowerState)

	require.NoError(t, o.SetPowerLock(true))
	assert.False(t, o.State().PowerState)

	out = o.tick(start.Add(time.Minute), start.Add(2*time.Minute), 0)
	assert.False(t, out.PowerState)
	assert.Zero(t, out.Draw)

	require.NoError(t, o.SetPowerLock(false))
	out = o.tick(start.Add(2*time.Minute), start.Add(3*time.Minute), 0)
	assert.True(t, out.PowerState, "cycle resumes once unlocked")
}

func TestLockedApplianceDoesNotStartCycle(t *testing.T) {
	o := newTestOven(t, func(p *CycleParams) { p.Controllable = true })
	require.NoError(t, o.SetPowerLock(true))

	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	out := o.tick(start, start.Add(time.Minute), 0)

	assert.False(t, out.PowerState)
	assert.Zero(t, o.State().CycleCount)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindOven, KindDryer, KindHeatpump} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("toaster")
	assert.ErrorIs(t, err, ErrInvalidKind)
}
