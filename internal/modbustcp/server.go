// Package modbustcp implements the Modbus TCP server (component H): it
// binds a TCP listener, accepts concurrent clients, translates Modbus
// holding/input-register and coil/discrete-input requests against the
// shared register map, and routes external writes through a WriteCallback.
package modbustcp

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/dexatek/cdu-gateway/internal/regmap"
)

// DefaultUnitID is the fixed Modbus unit/slave ID the server answers to for
// on-board register-map traffic, matching the fixed on-board device ID used
// by the HID/RTU side (component B).
const DefaultUnitID = 240

// Config configures the Modbus TCP listener.
type Config struct {
	// ListenURL is e.g. "tcp://0.0.0.0:502".
	ListenURL string
	// Timeout closes idle client connections after this long.
	Timeout time.Duration
	// MaxClients bounds concurrent client connections.
	MaxClients uint
	// UnitID is the only unit ID this server answers to; requests for any
	// other unit ID receive ErrIllegalFunction.
	UnitID byte
}

// Server wraps a *modbus.ModbusServer bound to the shared register map.
type Server struct {
	inner   *modbus.ModbusServer
	handler *regmapHandler
}

// New builds a Server. regs backs every register read/write; onWrite is
// invoked for each register a client writes, after it has already been
// applied to regs by the handler's own bookkeeping is NOT assumed — onWrite
// is the single source of truth for whether/how the write lands (see
// callback.go).
func New(cfg Config, regs *regmap.Map, onWrite WriteCallback) (*Server, error) {
	unitID := cfg.UnitID
	if unitID == 0 {
		unitID = DefaultUnitID
	}
	h := &regmapHandler{regs: regs, onWrite: onWrite, unitID: unitID}

	inner, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        cfg.ListenURL,
		Timeout:    cfg.Timeout,
		MaxClients: cfg.MaxClients,
	}, h)
	if err != nil {
		return nil, fmt.Errorf("modbustcp: new server: %w", err)
	}
	return &Server{inner: inner, handler: h}, nil
}

// Start begins accepting client connections. It returns once the listener
// is up; client handling happens in library-managed goroutines.
func (s *Server) Start() error {
	if err := s.inner.Start(); err != nil {
		return fmt.Errorf("modbustcp: start: %w", err)
	}
	return nil
}

// Stop closes the listener and all active client connections.
func (s *Server) Stop() error {
	return s.inner.Stop()
}

// regmapHandler implements the modbus.RequestHandler interface
// (HandleCoils/HandleDiscreteInputs/HandleHoldingRegisters/
// HandleInputRegisters), grounded on other_examples' tcp_server.go.
type regmapHandler struct {
	regs    *regmap.Map
	onWrite WriteCallback
	unitID  byte
}

// HandleCoils exposes GPIO outputs as coils (one bit per word, matching the
// register map's one-channel-per-word GPIO layout): reads translate a
// nonzero word to true; writes accept only 0/1 and go through onWrite like
// any other register write.
func (h *regmapHandler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if req.UnitId != h.unitID {
		return nil, modbus.ErrIllegalFunction
	}
	res := make([]bool, 0, req.Quantity)
	for i := 0; i < int(req.Quantity); i++ {
		addr := uint32(req.Addr) + uint32(i)
		if req.IsWrite {
			var v uint16
			if req.Args[i] {
				v = 1
			}
			if err := h.applyWrite(addr, v); err != nil {
				return nil, translateErr(err)
			}
		}
		raw, err := h.regs.GetRaw(addr)
		if err != nil {
			return nil, translateErr(err)
		}
		res = append(res, raw != 0)
	}
	return res, nil
}

// HandleDiscreteInputs is unsupported: the register map has no distinct
// read-only-bit address space beyond what holding registers already cover.
func (h *regmapHandler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

// HandleHoldingRegisters serves both reads and writes directly against the
// register map's raw words; a write is routed through onWrite first so the
// RTC/RS-485-bridge/direct-update dispatch (callback.go) sees every change.
func (h *regmapHandler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.UnitId != h.unitID {
		return nil, modbus.ErrIllegalFunction
	}
	res := make([]uint16, 0, req.Quantity)
	for i := 0; i < int(req.Quantity); i++ {
		addr := uint32(req.Addr) + uint32(i)
		if req.IsWrite {
			if err := h.applyWrite(addr, req.Args[i]); err != nil {
				return nil, translateErr(err)
			}
		}
		raw, err := h.regs.GetRaw(addr)
		if err != nil {
			return nil, translateErr(err)
		}
		res = append(res, raw)
	}
	return res, nil
}

// HandleInputRegisters mirrors the same address space read-only, for
// clients that prefer function code 4 over 3 (design/039_CDU_Gateway_Modbus_TCP_Server.md §4.H: "translates
// them into reads/writes against D" makes no distinction between the two
// read function codes).
func (h *regmapHandler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	if req.UnitId != h.unitID {
		return nil, modbus.ErrIllegalFunction
	}
	res := make([]uint16, 0, req.Quantity)
	for i := 0; i < int(req.Quantity); i++ {
		raw, err := h.regs.GetRaw(uint32(req.Addr) + uint32(i))
		if err != nil {
			return nil, translateErr(err)
		}
		res = append(res, raw)
	}
	return res, nil
}

// applyWrite invokes onWrite if set, falling back to a direct SetRaw so the
// handler remains usable (e.g. in tests) without a callback wired up.
func (h *regmapHandler) applyWrite(addr uint32, value uint16) error {
	if h.onWrite == nil {
		return h.regs.SetRaw(addr, value)
	}
	if err := h.onWrite(addr, value); err != nil {
		slog.Warn("modbus tcp write callback failed", "address", addr, "value", value, "error", err)
		return err
	}
	return nil
}

// translateErr maps a regmap out-of-range error to the Modbus "illegal data
// address" exception; anything else is passed through as a generic failure
// (the library surfaces it as a slave device failure exception).
func translateErr(err error) error {
	var oor *regmap.ErrOutOfRange
	if errors.As(err, &oor) {
		return modbus.ErrIllegalDataAddress
	}
	return err
}
