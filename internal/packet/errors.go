package packet

import "errors"

var (
	ErrShortPacket      = errors.New("packet too short")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidParamType = errors.New("invalid parameter type")
	ErrInvalidParamSize = errors.New("invalid parameter size")
	ErrTooManyParams    = errors.New("too many parameters")
)
