package packet

import (
	"fmt"
	"strings"
)

type ParamType int

const (
	ParamUnknown ParamType = iota
	ParamInt
	ParamBool
	ParamFloat
)

func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "int"
	case ParamBool:
		return "bool"
	case ParamFloat:
		return "float"
	default:
		return "unknown"
	}
}

func ParseParamType(s string) (ParamType, error) {
	switch strings.ToLower(s) {
	case "int":
		return ParamInt, nil
	case "bool":
		return ParamBool, nil
	case "float":
		return ParamFloat, nil
	default:
		return ParamUnknown, fmt.Errorf("%w: %q", ErrInvalidParamType, s)
	}
}

type Param struct {
	ID   byte
	Type ParamType
}

// Oracle maps parameter names to their wire id and type. Both ends of the link
// must share it.
type Oracle map[string]Param

const (
	ParamPowerLock         = "power_lock"
	ParamTargetTemperature = "target_temperature"
)

func DefaultOracle() Oracle {
	return Oracle{
		ParamPowerLock:         {ID: 1, Type: ParamBool},
		ParamTargetTemperature: {ID: 2, Type: ParamFloat},
	}
}

func (o Oracle) byID(id byte) (string, Param, bool) {
	for name, p := range o {
		if p.ID == id {
			return name, p, true
		}
	}
	return "", Param{}, false
}
