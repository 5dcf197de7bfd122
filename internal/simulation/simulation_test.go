package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/packet"
)

const start = int64(1705305600) // 2024-01-15T08:00:00Z

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.FatalLevel)
	return l
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	hp, err := household.NewHeatpump(household.HeatpumpParams{
		PowerUsage:        1.5,
		TargetTemperature: 20.5,
		HeatingMultiplier: 3,
		Rand:              household.NewRandomSource(2),
	})
	require.NoError(t, err)
	oven, err := household.NewOven(household.CycleParams{
		PowerUsage:          1.1,
		Coefficients:        household.Polynomial{0},
		AllowedCyclesPerDay: 1,
		CycleDuration:       household.CycleRange{Min: 30, Max: 120},
		Rand:                household.NewRandomSource(3),
	})
	require.NoError(t, err)
	h, err := household.NewHouse(household.HouseParams{
		EnergyLabel:       household.LabelD,
		SquareMeters:      150,
		WallHeightMeters:  2.8,
		StartTemperature:  18,
		StartTime:         start,
		ActiveDaysPerYear: 212,
		Background:        household.BackgroundParams{Coefficients: household.Polynomial{0.3}},
		Rand:              household.NewRandomSource(1),
	}, hp, oven)
	require.NoError(t, err)
	return NewService(h, true)
}

func TestServiceStep(t *testing.T) {
	svc := newTestService(t)

	initial := svc.Latest()
	assert.Equal(t, start, initial.Time)
	assert.Len(t, initial.PowerStates, 2)

	r, err := svc.Step(60)
	require.NoError(t, err)
	assert.Equal(t, start+60, r.Time)
	assert.Equal(t, []bool{true, false}, r.PowerStates)
	assert.Equal(t, r, svc.Latest())

	_, err = svc.Step(-60)
	assert.ErrorIs(t, err, household.ErrTimeTravel)
}

func TestServiceLatestIsACopy(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Step(60)
	require.NoError(t, err)

	r := svc.Latest()
	r.PowerStates[0] = false
	assert.True(t, svc.Latest().PowerStates[0])
}

func TestServiceAppliances(t *testing.T) {
	svc := newTestService(t)
	apps := svc.Appliances()
	require.Len(t, apps, 2)
	assert.Equal(t, household.KindHeatpump, apps[0].Kind)
	assert.True(t, apps[0].Controllable)
	assert.Equal(t, household.KindOven, apps[1].Kind)
	assert.False(t, apps[1].Controllable)
}

func TestServiceSetTargetTemperature(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.SetTargetTemperature(0, 22))
	assert.ErrorIs(t, svc.SetTargetTemperature(1, 22), ErrNotHeatpump)
	assert.ErrorIs(t, svc.SetTargetTemperature(5, 22), household.ErrUnknownAppliance)
}

func TestServiceSetTimeIsMonotonic(t *testing.T) {
	svc := newTestService(t)
	assert.False(t, svc.SetTime(start-10))
	assert.True(t, svc.SetTime(start+600))
	assert.Equal(t, start+600, svc.Time())
}

func TestApplyControlClockAndLock(t *testing.T) {
	svc := newTestService(t)
	clk := uint32(start + 3600)
	err := ApplyControl(svc, packet.Control{
		Clock:  &clk,
		Params: map[string]any{packet.ParamPowerLock: true},
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, start+3600, svc.Time())
	apps := svc.Appliances()
	assert.True(t, apps[0].State.PowerLocked)
	assert.False(t, apps[1].State.PowerLocked)
}

func TestApplyControlStaleClockIgnored(t *testing.T) {
	svc := newTestService(t)
	clk := uint32(start - 3600)
	require.NoError(t, ApplyControl(svc, packet.Control{Clock: &clk}, quietLogger()))
	assert.Equal(t, start, svc.Time())
}

func TestApplyControlNotControllableTarget(t *testing.T) {
	svc := newTestService(t)
	devices := uint8(0b11)
	err := ApplyControl(svc, packet.Control{
		Params:  map[string]any{packet.ParamPowerLock: true},
		Devices: &devices,
	}, quietLogger())

	assert.ErrorIs(t, err, household.ErrNotControllable)
	assert.True(t, svc.Appliances()[0].State.PowerLocked, "controllable target still applied")
}

func TestApplyControlTargetTemperature(t *testing.T) {
	svc := newTestService(t)
	err := ApplyControl(svc, packet.Control{
		Params: map[string]any{packet.ParamTargetTemperature: 17.0},
	}, quietLogger())
	require.NoError(t, err)

	r, err := svc.Step(60)
	require.NoError(t, err)
	assert.False(t, r.PowerStates[0], "18°C is above the new target")
}

func TestApplyControlWrongParamType(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"int power lock", map[string]any{packet.ParamPowerLock: int64(1)}},
		{"int target temperature", map[string]any{packet.ParamTargetTemperature: int64(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			err := ApplyControl(svc, packet.Control{Params: tt.params}, quietLogger())
			assert.ErrorIs(t, err, ErrInvalidParamValue)
			assert.False(t, svc.Appliances()[0].State.PowerLocked)

			r, err := svc.Step(60)
			require.NoError(t, err)
			assert.True(t, r.PowerStates[0], "target left at 20.5°C")
		})
	}
}

type recordingSink struct {
	mu       sync.Mutex
	readings []household.Reading
	err      error
}

func (s *recordingSink) Publish(_ context.Context, r household.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func TestNewRunnerValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := NewRunner(svc, RunnerConfig{Interval: 0, Step: time.Minute}, quietLogger())
	assert.Error(t, err)
	_, err = NewRunner(svc, RunnerConfig{Interval: time.Second, Step: time.Millisecond}, quietLogger())
	assert.Error(t, err)
}

func TestRunnerStepPublishes(t *testing.T) {
	svc := newTestService(t)
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	r, err := NewRunner(svc, RunnerConfig{Interval: time.Second, Step: time.Minute}, quietLogger(), failing, ok)
	require.NoError(t, err)

	require.NoError(t, r.Step(context.Background()))
	require.NoError(t, r.Step(context.Background()))

	assert.Equal(t, 2, failing.count())
	require.Equal(t, 2, ok.count())
	assert.Equal(t, start+120, ok.readings[1].Time)
}

func TestRunnerRunUntilCanceled(t *testing.T) {
	svc := newTestService(t)
	sink := &recordingSink{}
	r, err := NewRunner(svc, RunnerConfig{Interval: 5 * time.Millisecond, Step: time.Minute}, quietLogger(), sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunnerPausedDoesNotTick(t *testing.T) {
	svc := newTestService(t)
	svc.SetRunning(false)
	sink := &recordingSink{}
	r, err := NewRunner(svc, RunnerConfig{Interval: 2 * time.Millisecond, Step: time.Minute}, quietLogger(), sink)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	assert.Zero(t, sink.count())
	assert.Equal(t, start, svc.Time())
}
