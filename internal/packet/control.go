package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Control packet flags.
const (
	FlagClock   byte = 1 << 0
	FlagParams  byte = 1 << 1
	FlagDevices byte = 1 << 3
)

// Control is a decoded command from the Area Controller.
type Control struct {
	Clock   *uint32
	Params  map[string]any // int64, bool or float64 depending on the oracle type
	Devices *uint8
}

func (c Control) Flags() byte {
	var f byte
	if c.Clock != nil {
		f |= FlagClock
	}
	if len(c.Params) > 0 {
		f |= FlagParams
	}
	if c.Devices != nil {
		f |= FlagDevices
	}
	return f
}

func DecodeControl(b []byte, oracle Oracle) (Control, error) {
	var c Control
	if len(b) < 1 {
		return c, ErrShortPacket
	}
	flags := b[0]
	cur := 1

	if flags&FlagClock != 0 {
		if len(b) < cur+4 {
			return c, fmt.Errorf("clock: %w", ErrShortPacket)
		}
		clk := binary.BigEndian.Uint32(b[cur : cur+4])
		c.Clock = &clk
		cur += 4
	}

	if flags&FlagParams != 0 {
		if len(b) < cur+1 {
			return c, fmt.Errorf("params: %w", ErrShortPacket)
		}
		n := int(b[cur])
		cur++
		c.Params = make(map[string]any, n)
		for i := 0; i < n; i++ {
			if len(b) < cur+2 {
				return c, fmt.Errorf("param %d: %w", i, ErrShortPacket)
			}
			id, size := b[cur], int(b[cur+1])
			cur += 2
			if len(b) < cur+size {
				return c, fmt.Errorf("param %d: %w", i, ErrShortPacket)
			}
			data := b[cur : cur+size]
			cur += size

			name, p, ok := oracle.byID(id)
			if !ok {
				return c, fmt.Errorf("%w: id %d", ErrUnknownParameter, id)
			}
			v, err := decodeValue(p.Type, data)
			if err != nil {
				return c, fmt.Errorf("param %q: %w", name, err)
			}
			c.Params[name] = v
		}
	}

	if flags&FlagDevices != 0 {
		if len(b) < cur+1 {
			return c, fmt.Errorf("devices: %w", ErrShortPacket)
		}
		d := b[cur]
		c.Devices = &d
	}
	return c, nil
}

func decodeValue(t ParamType, data []byte) (any, error) {
	switch t {
	case ParamInt:
		if len(data) == 0 || len(data) > 8 {
			return nil, ErrInvalidParamSize
		}
		var v uint64
		for _, x := range data {
			v = v<<8 | uint64(x)
		}
		return int64(v), nil
	case ParamBool:
		if len(data) < 1 {
			return nil, ErrInvalidParamSize
		}
		return data[0] > 0, nil
	case ParamFloat:
		if len(data) != 8 {
			return nil, ErrInvalidParamSize
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	default:
		return nil, ErrInvalidParamType
	}
}

// EncodeControl is the inverse of DecodeControl. Parameters are written in
// oracle id order so the output is stable.
func EncodeControl(c Control, oracle Oracle) ([]byte, error) {
	b := []byte{c.Flags()}
	if c.Clock != nil {
		b = binary.BigEndian.AppendUint32(b, *c.Clock)
	}
	if len(c.Params) > 0 {
		if len(c.Params) > math.MaxUint8 {
			return nil, ErrTooManyParams
		}
		for name := range c.Params {
			if _, ok := oracle[name]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
			}
		}
		b = append(b, byte(len(c.Params)))
		for id := 0; id <= math.MaxUint8; id++ {
			name, p, ok := oracle.byID(byte(id))
			if !ok {
				continue
			}
			v, set := c.Params[name]
			if !set {
				continue
			}
			data, err := encodeValue(p.Type, v)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", name, err)
			}
			b = append(b, p.ID, byte(len(data)))
			b = append(b, data...)
		}
	}
	if c.Devices != nil {
		b = append(b, *c.Devices)
	}
	return b, nil
}

func encodeValue(t ParamType, v any) ([]byte, error) {
	switch t {
	case ParamInt:
		var i int64
		switch x := v.(type) {
		case int:
			i = int64(x)
		case int64:
			i = x
		case uint32:
			i = int64(x)
		default:
			return nil, ErrInvalidParamType
		}
		return binary.BigEndian.AppendUint64(nil, uint64(i)), nil
	case ParamBool:
		x, ok := v.(bool)
		if !ok {
			return nil, ErrInvalidParamType
		}
		if x {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case ParamFloat:
		x, ok := v.(float64)
		if !ok {
			return nil, ErrInvalidParamType
		}
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(x)), nil
	default:
		return nil, ErrInvalidParamType
	}
}
