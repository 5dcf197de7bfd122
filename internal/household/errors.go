package household

import "errors"

var (
	ErrInvalidEnergyLabel = errors.New("invalid energy label")
	ErrInvalidDimensions  = errors.New("square meters and wall height must be greater than zero")
	ErrInvalidActiveDays  = errors.New("active days per year must be within 1..366")
	ErrInvalidFluctuation = errors.New("fluctuation must be within [0, 1)")
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	ErrInvalidCycleRange  = errors.New("invalid cycle duration range")
	ErrInvalidPowerUsage  = errors.New("power usage must be greater or equal to zero")
	ErrInvalidMultiplier  = errors.New("heating multiplier must be greater or equal to zero")
	ErrInvalidKind        = errors.New("invalid appliance kind")
	ErrTooManyAppliances  = errors.New("a house supports at most 8 appliances")
	ErrNilAppliance       = errors.New("appliance is nil")
	ErrNotControllable    = errors.New("appliance is not controllable")
	ErrUnknownAppliance   = errors.New("unknown appliance")
	ErrTimeTravel         = errors.New("no time travel: time moved backwards")
)
