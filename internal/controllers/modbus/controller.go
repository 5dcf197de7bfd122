package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

// Register map.
//
//	coils (FC1/FC5)             i    power lock of appliance i
//	discrete inputs (FC2)       i    power state of appliance i
//	input registers (FC4)       0    temperature °C x100 (int16)
//	                            1    total draw kW x100 (uint16)
//	                            2-3  simulated unix time (uint32, high word first)
//	holding registers (FC3/6/16) 0-1 clock (uint32, high word first), writes sync the clock
//	                            2    running (0 or 1)
const (
	irTemperature = 0
	irDraw        = 1
	irTimeHigh    = 2
	irTimeLow     = 3
	irCount       = 4

	hrClockHigh = 0
	hrClockLow  = 1
	hrRunning   = 2
	hrCount     = 3
)

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc ports.HouseService
	cfg Config
	log *logrus.Entry

	serv *mbserver.Server
}

func New(svc ports.HouseService, cfg Config, log *logrus.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg, log: log.WithField("component", "modbus")}, nil
}

// Run starts the Modbus server and registers handlers that apply writes immediately and
// serve reads directly from the house service. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	serv.RegisterFunctionHandler(1, c.readCoils)
	serv.RegisterFunctionHandler(2, c.readDiscreteInputs)
	serv.RegisterFunctionHandler(3, c.readHoldingRegisters)
	serv.RegisterFunctionHandler(4, c.readInputRegisters)
	serv.RegisterFunctionHandler(5, c.writeSingleCoil)
	serv.RegisterFunctionHandler(6, c.writeSingleRegister)
	serv.RegisterFunctionHandler(16, c.writeMultipleRegisters)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.log.WithField("addr", c.cfg.Addr).Info("listening")

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// Read Coils (function 1) - power lock per appliance.
func (c *Controller) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	apps := c.svc.Appliances()
	start, qty, exc := readRange(frame.GetData(), 2000, len(apps))
	if *exc != mbserver.Success {
		return []byte{}, exc
	}
	bits := make([]bool, qty)
	for i := range bits {
		bits[i] = apps[start+i].State.PowerLocked
	}
	return packBits(bits), &mbserver.Success
}

// Read Discrete Inputs (function 2) - power state per appliance from the last tick.
func (c *Controller) readDiscreteInputs(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	r := c.svc.Latest()
	start, qty, exc := readRange(frame.GetData(), 2000, len(r.PowerStates))
	if *exc != mbserver.Success {
		return []byte{}, exc
	}
	return packBits(r.PowerStates[start : start+qty]), &mbserver.Success
}

// Read Holding Registers (function 3) - clock and running flag.
func (c *Controller) readHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), 125, hrCount)
	if *exc != mbserver.Success {
		return []byte{}, exc
	}
	clock := uint32(c.svc.Time())
	all := [hrCount]uint16{
		hrClockHigh: uint16(clock >> 16),
		hrClockLow:  uint16(clock),
		hrRunning:   boolRegister(c.svc.Running()),
	}
	return packRegisters(all[start : start+qty]), &mbserver.Success
}

// Read Input Registers (function 4) - temperature, draw and simulated time.
func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), 125, irCount)
	if *exc != mbserver.Success {
		return []byte{}, exc
	}
	r := c.svc.Latest()
	all := [irCount]uint16{
		irTemperature: encodeTemp(r.Temperature),
		irDraw:        encodeDraw(r.TotalDraw),
		irTimeHigh:    uint16(uint32(r.Time) >> 16),
		irTimeLow:     uint16(uint32(r.Time)),
	}
	return packRegisters(all[start : start+qty]), &mbserver.Success
}

// Write Single Coil (function 5) - power lock.
func (c *Controller) writeSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	var locked bool
	switch value {
	case 0x0000:
		locked = false
	case 0xFF00:
		locked = true
	default:
		return []byte{}, &mbserver.IllegalDataValue
	}

	if err := c.svc.SetPowerLock(int(addr), locked); err != nil {
		c.log.WithError(err).WithField("coil", addr).Warn("power lock rejected")
		if errors.Is(err, household.ErrUnknownAppliance) {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		return []byte{}, &mbserver.IllegalDataValue
	}

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Single Register (function 6)
func (c *Controller) writeSingleRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	if exc := c.writeHolding(int(addr), []uint16{value}); *exc != mbserver.Success {
		return []byte{}, exc
	}

	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Multiple Registers (function 16)
func (c *Controller) writeMultipleRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if quantity == 0 || byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}
	vals := make([]uint16, quantity)
	for i := range vals {
		vals[i] = binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
	}

	if exc := c.writeHolding(int(start), vals); *exc != mbserver.Success {
		return []byte{}, exc
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

// writeHolding applies vals starting at register start. Clock words missing from the
// write keep their current value; a clock that is not newer than the house clock is
// ignored.
func (c *Controller) writeHolding(start int, vals []uint16) *mbserver.Exception {
	if start < 0 || start+len(vals) > hrCount {
		return &mbserver.IllegalDataAddress
	}

	clock := uint32(c.svc.Time())
	clockTouched := false
	for i, v := range vals {
		switch start + i {
		case hrClockHigh:
			clock = uint32(v)<<16 | clock&0xFFFF
			clockTouched = true
		case hrClockLow:
			clock = clock&0xFFFF0000 | uint32(v)
			clockTouched = true
		case hrRunning:
			if v > 1 {
				return &mbserver.IllegalDataValue
			}
		}
	}

	if clockTouched {
		adopted := c.svc.SetTime(int64(clock))
		c.log.WithFields(logrus.Fields{"clock": clock, "adopted": adopted}).Info("clock sync")
	}
	if i := hrRunning - start; i >= 0 && i < len(vals) {
		c.svc.SetRunning(vals[i] == 1)
	}
	return &mbserver.Success
}

// readRange validates a (start, quantity) read request against size addressable items.
func readRange(data []byte, maxQty, size int) (int, int, *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > maxQty {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > size {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, &mbserver.Success
}

// packBits returns byte count + LSB-first packed bits.
func packBits(bits []bool) []byte {
	n := (len(bits) + 7) / 8
	resp := make([]byte, 1+n)
	resp[0] = byte(n)
	for i, b := range bits {
		if b {
			resp[1+i/8] |= 1 << (i % 8)
		}
	}
	return resp
}

// packRegisters returns byte count + big-endian register bytes.
func packRegisters(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

func boolRegister(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

const (
	TemperatureScale int = 100
	DrawScale        int = 100
)

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(TemperatureScale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	i := int16(u)
	return float64(i) / float64(TemperatureScale)
}

func encodeDraw(kw float64) uint16 {
	r := min(max(int(math.Round(kw*float64(DrawScale))), 0), math.MaxUint16)
	return uint16(r)
}

func decodeDraw(u uint16) float64 {
	return float64(u) / float64(DrawScale)
}
