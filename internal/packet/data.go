package packet

import (
	"encoding/binary"
	"math"
)

// DataSize is the length of an encoded data packet.
const DataSize = 13

// Data is the reading sent to the Area Controller once per tick.
type Data struct {
	Devices     uint8 // bit i = state of appliance i
	PowerUsage  float32
	Temperature float32
	Time        uint32 // unix seconds
}

// EncodeData lays out devices | power | temperature | time, big-endian.
func EncodeData(d Data) []byte {
	b := make([]byte, DataSize)
	b[0] = d.Devices
	binary.BigEndian.PutUint32(b[1:5], math.Float32bits(d.PowerUsage))
	binary.BigEndian.PutUint32(b[5:9], math.Float32bits(d.Temperature))
	binary.BigEndian.PutUint32(b[9:13], d.Time)
	return b
}

func DecodeData(b []byte) (Data, error) {
	if len(b) < DataSize {
		return Data{}, ErrShortPacket
	}
	return Data{
		Devices:     b[0],
		PowerUsage:  math.Float32frombits(binary.BigEndian.Uint32(b[1:5])),
		Temperature: math.Float32frombits(binary.BigEndian.Uint32(b[5:9])),
		Time:        binary.BigEndian.Uint32(b[9:13]),
	}, nil
}
