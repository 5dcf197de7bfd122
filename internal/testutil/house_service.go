package testutil

import (
	"sync"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

// FakeHouseService is a reusable fake implementing ports.HouseService.
// Put ONLY what multiple test packages need here.
type FakeHouseService struct {
	mu sync.Mutex

	R     household.Reading
	Apps  []ports.ApplianceInfo
	On    bool
	Clock int64

	SetPowerLockCalled bool
	SetPowerLockIndex  int
	SetPowerLockArg    bool
	SetPowerLockErr    error

	SetTargetCalled bool
	SetTargetIndex  int
	SetTargetArg    float64
	SetTargetErr    error

	SetTimeCalled bool
	SetTimeArg    int64
}

// NewFakeHouseService returns a two-appliance house: a heatpump (on) and an
// oven (off, not controllable).
func NewFakeHouseService() *FakeHouseService {
	return &FakeHouseService{
		R: household.Reading{
			PowerStates: []bool{true, false},
			TotalDraw:   1.8,
			Temperature: 20.25,
			Time:        1705305600,
		},
		Apps: []ports.ApplianceInfo{
			{Index: 0, Kind: household.KindHeatpump, Controllable: true, State: household.ApplianceState{PowerState: true}},
			{Index: 1, Kind: household.KindOven, Controllable: false},
		},
		On:    true,
		Clock: 1705305600,
	}
}

func (f *FakeHouseService) Latest() household.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.R
	r.PowerStates = append([]bool(nil), f.R.PowerStates...)
	return r
}

func (f *FakeHouseService) SetReading(r household.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.R = r
}

func (f *FakeHouseService) Appliances() []ports.ApplianceInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.ApplianceInfo(nil), f.Apps...)
}

func (f *FakeHouseService) SetPowerLock(index int, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetPowerLockCalled = true
	f.SetPowerLockIndex = index
	f.SetPowerLockArg = locked
	if f.SetPowerLockErr != nil {
		return f.SetPowerLockErr
	}
	if index < 0 || index >= len(f.Apps) {
		return household.ErrUnknownAppliance
	}
	if !f.Apps[index].Controllable {
		return household.ErrNotControllable
	}
	f.Apps[index].State.PowerLocked = locked
	if locked {
		f.Apps[index].State.PowerState = false
	}
	return nil
}

func (f *FakeHouseService) SetTargetTemperature(index int, target float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetTargetCalled = true
	f.SetTargetIndex = index
	f.SetTargetArg = target
	return f.SetTargetErr
}

func (f *FakeHouseService) SetTime(unixTime int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetTimeCalled = true
	f.SetTimeArg = unixTime
	if unixTime <= f.Clock {
		return false
	}
	f.Clock = unixTime
	return true
}

// Time is the house clock. Like the real service it moves on SetTime while
// R keeps the time of the last published reading.
func (f *FakeHouseService) Time() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Clock
}

func (f *FakeHouseService) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.On
}

func (f *FakeHouseService) SetRunning(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.On = on
}

// Locked reports the lock flag of appliance i.
func (f *FakeHouseService) Locked(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Apps[i].State.PowerLocked
}
