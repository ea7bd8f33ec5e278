package boards

import (
	"errors"
	"time"

	"github.com/dexatek/cdu-gateway/internal/cduerr"
	"github.com/dexatek/cdu-gateway/internal/hid"
	"github.com/dexatek/cdu-gateway/internal/mbrtu"
)

// Commander is the shared entry point for every silicon-specific command
// group (GPIO, AIO, RTD, capture-PWM, PWM output, UART). One Commander
// drives an arbitrary number of ports through a single Transport.
type Commander struct {
	transport hid.Transport
	timeout   time.Duration
	observe   func(port int, ok bool, d time.Duration)
}

// mbrtuOnBoardID is the fixed slave address for traffic addressed to the
// on-board microcontroller itself, as opposed to an RS-485 bridged slave.
const mbrtuOnBoardID = mbrtu.OnBoardDeviceID

// New builds a Commander over transport with the given per-request timeout.
func New(transport hid.Transport, timeout time.Duration) *Commander {
	if timeout <= 0 {
		timeout = hid.DefaultTimeout
	}
	return &Commander{transport: transport, timeout: timeout}
}

// SetObserver installs a callback invoked after every HID round trip with
// its port, outcome, and latency — the hook internal/telemetry's HID
// histogram/counter pair is wired through (design/044_CDU_Gateway_Telemetry.md §4.N:
// "cdu_hid_requests_total{port,result}" /
// "cdu_hid_request_duration_seconds"). A nil observer (the default)
// disables observation entirely.
func (c *Commander) SetObserver(fn func(port int, ok bool, d time.Duration)) {
	c.observe = fn
}

func (c *Commander) roundTrip(port int, req []byte) ([]byte, error) {
	start := time.Now()
	resp, err := hid.RoundTrip(c.transport, port, req, c.timeout)
	if c.observe != nil {
		c.observe(port, err == nil, time.Since(start))
	}
	return resp, err
}

func (c *Commander) classify(port int, err error) error {
	switch {
	case errors.Is(err, hid.ErrTimeout):
		return &cduerr.HardwareError{Kind: cduerr.Timeout, Port: port, Err: err}
	case errors.Is(err, hid.ErrNotOpen):
		return &cduerr.HardwareError{Kind: cduerr.Disconnected, Port: port, Err: err}
	default:
		var exErr *mbrtu.ExceptionError
		if errors.As(err, &exErr) {
			return &cduerr.HardwareError{Kind: cduerr.ExceptionCode, Port: port, Exception: exErr.Code, Err: err}
		}
		var hidIOErr *hid.ErrIO
		if errors.As(err, &hidIOErr) {
			return &cduerr.HardwareError{Kind: cduerr.Disconnected, Port: port, Err: err}
		}
	}
	return &cduerr.HardwareError{Kind: cduerr.BadCRC, Port: port, Err: err}
}

// readRegisters reads count holding registers starting at addr, chunking
// into requests of at most mbrtu.MaxRegistersPerRequest and reassembling
// transparently.
func (c *Commander) readRegisters(port int, slave byte, addr uint16, count uint16) ([]uint16, error) {
	return c.readRegistersFC(port, slave, mbrtu.FuncReadHoldingRegisters, addr, count)
}

// readRegistersFC is readRegisters generalized over function code, used by
// the RS-485 passthrough (RS485Read) where the device-config entry names
// its own function code (1/2/3/4).
func (c *Commander) readRegistersFC(port int, slave, fc byte, addr uint16, count uint16) ([]uint16, error) {
	out := make([]uint16, 0, count)
	for remaining, cur := count, addr; remaining > 0; {
		n := remaining
		if n > mbrtu.MaxRegistersPerRequest {
			n = mbrtu.MaxRegistersPerRequest
		}
		req := mbrtu.BuildRead(slave, fc, cur, n)
		resp, err := c.roundTrip(port, req)
		if err != nil {
			return nil, c.classify(port, err)
		}
		parsed, err := mbrtu.ParseReadResponse(resp, fc)
		if err != nil {
			return nil, c.classify(port, err)
		}
		out = append(out, mbrtu.RegistersFromContent(parsed.Content)...)
		cur += n
		remaining -= n
	}
	return out, nil
}

// RS485Read issues a Modbus-RTU read against a bridged RS-485 slave,
// addressed by its own slave ID rather than the fixed on-board device ID
// (design/036_CDU_Gateway_Acquisition_Engine.md §4.E step 3).
func (c *Commander) RS485Read(port int, slaveID, fc byte, addr uint16, count uint16) ([]uint16, error) {
	return c.readRegistersFC(port, slaveID, fc, addr, count)
}

// RS485WriteSingle writes one register to a bridged RS-485 slave.
func (c *Commander) RS485WriteSingle(port int, slaveID byte, addr uint16, value uint16) error {
	return c.writeSingle(port, slaveID, addr, value)
}

// RS485WriteMultiple writes a contiguous run of registers to a bridged
// RS-485 slave.
func (c *Commander) RS485WriteMultiple(port int, slaveID byte, addr uint16, values []uint16) error {
	return c.writeMultiple(port, slaveID, addr, values)
}

// writeSingle writes one holding register.
func (c *Commander) writeSingle(port int, slave byte, addr uint16, value uint16) error {
	req := mbrtu.BuildWriteSingle(slave, addr, value)
	resp, err := c.roundTrip(port, req)
	if err != nil {
		return c.classify(port, err)
	}
	if err := mbrtu.ParseWriteResponse(resp, mbrtu.FuncWriteSingleRegister); err != nil {
		return c.classify(port, err)
	}
	return nil
}

// writeMultiple writes a contiguous run of holding registers in one frame;
// callers are responsible for keeping len(values) within the 28-register
// chunk limit (the spec's write operations never exceed it in practice).
func (c *Commander) writeMultiple(port int, slave byte, addr uint16, values []uint16) error {
	req := mbrtu.BuildWriteMultiple(slave, addr, values)
	resp, err := c.roundTrip(port, req)
	if err != nil {
		return c.classify(port, err)
	}
	if err := mbrtu.ParseWriteResponse(resp, mbrtu.FuncWriteMultipleRegs); err != nil {
		return c.classify(port, err)
	}
	return nil
}

// i32FromWords decodes a big-endian 32-bit signed value from two registers
// (on-wire order, distinct from the register map's little-endian word
// order used in component D).
func i32FromWords(hi, lo uint16) int32 {
	return int32(uint32(hi)<<16 | uint32(lo))
}

func u32FromWords(hi, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

func wordsFromI32(v int32) (hi, lo uint16) {
	u := uint32(v)
	return uint16(u >> 16), uint16(u)
}

func wordsFromU32(v uint32) (hi, lo uint16) {
	return uint16(v >> 16), uint16(v)
}
