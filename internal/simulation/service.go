package simulation

import (
	"errors"
	"sync"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

var (
	ErrNotHeatpump       = errors.New("appliance is not a heatpump")
	ErrInvalidParamValue = errors.New("control parameter has the wrong type")
)

// Service serialises every access to one House. The house itself is not safe for
// concurrent use; controllers and the runner only reach it through here.
type Service struct {
	mu      sync.RWMutex
	house   *household.House
	latest  household.Reading
	running bool
}

func NewService(h *household.House, running bool) *Service {
	return &Service{
		house:   h,
		running: running,
		latest: household.Reading{
			PowerStates: make([]bool, len(h.Appliances())),
			Temperature: h.Temperature(),
			Time:        h.Time(),
		},
	}
}

// Step advances the clock by deltaSeconds and ticks the house once.
func (s *Service) Step(deltaSeconds int64) (household.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.house.AdvanceTime(deltaSeconds); err != nil {
		return household.Reading{}, err
	}
	r, err := s.house.Tick()
	if err != nil {
		return household.Reading{}, err
	}
	s.latest = r
	return r, nil
}

func (s *Service) Latest() household.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.latest
	r.PowerStates = append([]bool(nil), s.latest.PowerStates...)
	return r
}

func (s *Service) Appliances() []ports.ApplianceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apps := s.house.Appliances()
	out := make([]ports.ApplianceInfo, len(apps))
	for i, a := range apps {
		out[i] = ports.ApplianceInfo{
			Index:        i,
			Kind:         a.Kind(),
			Controllable: a.Controllable(),
			State:        a.State(),
		}
	}
	return out
}

func (s *Service) SetPowerLock(index int, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.house.SetPowerLock(index, locked)
}

func (s *Service) SetTargetTemperature(index int, target float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := s.house.Appliances()
	if index < 0 || index >= len(apps) {
		return household.ErrUnknownAppliance
	}
	hp, ok := apps[index].(*household.Heatpump)
	if !ok {
		return ErrNotHeatpump
	}
	hp.SetTargetTemperature(target)
	return nil
}

func (s *Service) SetTime(unixTime int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.house.SetTime(unixTime)
}

func (s *Service) Time() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.house.Time()
}

func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Service) SetRunning(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = on
}
