package ports

import "github.com/Agrid-Dev/housemocktat/internal/household"

// ApplianceInfo describes one appliance at its bitmask position.
type ApplianceInfo struct {
	Index        int
	Kind         household.Kind
	Controllable bool
	State        household.ApplianceState
}

// HouseService is the control-plane port used by controllers (HTTP/MQTT/Modbus/area link).
type HouseService interface {
	Latest() household.Reading
	Appliances() []ApplianceInfo
	SetPowerLock(index int, locked bool) error
	SetTargetTemperature(index int, target float64) error
	SetTime(unixTime int64) bool
	Time() int64
	Running() bool
	SetRunning(bool)
}
