// Package acquisition implements the periodic acquisition engine (component
// E): the AIO and RTD+RS485 pipelines that poll the board command layer,
// apply sensor transforms, and write results into the shared register map.
package acquisition

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/hid"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
)

// DefaultUpdateDelay is UPDATE_DELAY_MS's default value (design/036_CDU_Gateway_Acquisition_Engine.md §4.E).
const DefaultUpdateDelay = 1000 * time.Millisecond

// cycleObserver receives one acquisition pipeline's completed-iteration
// duration, matching the nil-safe instrumentation hook pattern used by
// boards.Commander.SetObserver. A nil observer disables metrics entirely.
type cycleObserver func(pipeline string, d time.Duration)

// Engine drives both acquisition pipelines against one Commander, register
// map, and sensor-config bundle.
type Engine struct {
	transport hid.Transport
	cmd       *boards.Commander
	regs      *regmap.Map
	cfg       *sensorconfig.Config
	interval  time.Duration
	observe   cycleObserver
}

// New builds an Engine. interval is UPDATE_DELAY_MS; zero selects
// DefaultUpdateDelay.
func New(transport hid.Transport, cmd *boards.Commander, regs *regmap.Map, cfg *sensorconfig.Config, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultUpdateDelay
	}
	return &Engine{transport: transport, cmd: cmd, regs: regs, cfg: cfg, interval: interval}
}

// SetCycleObserver installs fn to be called after every completed pipeline
// iteration with the pipeline name ("aio" or "rtd") and its duration
// (design/044_CDU_Gateway_Telemetry.md §4.N: "cdu_acquisition_cycle_duration_seconds{pipeline}").
func (e *Engine) SetCycleObserver(fn func(pipeline string, d time.Duration)) {
	e.observe = fn
}

// sortedPorts returns the ports bound to kind, in ascending order
// (design/045_CDU_Gateway_Concurrency_Model.md §5: "within one iteration of either pipeline, port order is ascending").
func (e *Engine) sortedPorts(kind boards.Kind) []int {
	ports := e.transport.Ports()
	sort.Ints(ports)
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		pid, err := e.transport.PortPID(p)
		if err != nil {
			continue
		}
		if boards.KindFromPID(pid) == kind {
			out = append(out, p)
		}
	}
	return out
}

// RunAIOPipeline loops forever (until ctx is cancelled) driving the AIO
// pipeline at e.interval. Intended to run in its own goroutine, one of
// "one thread per acquisition pipeline" (design/045_CDU_Gateway_Concurrency_Model.md §5).
func (e *Engine) RunAIOPipeline(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.aioCycle()
		}
	}
}

// RunRTDPipeline loops forever (until ctx is cancelled) driving the RTD
// pipeline at e.interval.
func (e *Engine) RunRTDPipeline(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.rtdCycle()
		}
	}
}

func (e *Engine) aioCycle() {
	start := time.Now()
	for _, port := range e.sortedPorts(boards.KindIO) {
		e.aioPort(port)
	}
	if e.observe != nil {
		e.observe("aio", time.Since(start))
	}
}

func (e *Engine) aioPort(port int) {
	log := slog.With("pipeline", "aio", "port", port)

	if in, err := e.cmd.GPIOInputStatus(port, 0, 8); err != nil {
		log.Warn("gpio input read failed", "error", err)
	} else {
		for ch, v := range in {
			_ = e.regs.Set(regmap.GPIOInputAddr(port, ch), regmap.U16(v))
		}
	}

	if out, err := e.cmd.GPIOOutputStatus(port, 0, 8); err != nil {
		log.Warn("gpio output read failed", "error", err)
	} else {
		for ch, v := range out {
			_ = e.regs.Set(regmap.GPIOOutputAddr(port, ch), regmap.U16(v))
		}
	}

	if modes, err := e.cmd.AIOGetMode(port, 4); err != nil {
		log.Warn("aio mode read failed", "error", err)
	} else {
		for ch, m := range modes {
			_ = e.regs.Set(regmap.AIOModeAddr(port, ch), regmap.U16(uint16(m)))
		}
	}

	if volts, err := e.cmd.AIOGetVoltageInput(port, 4); err != nil {
		log.Warn("aio voltage read failed", "error", err)
	} else {
		e.applyAIOVoltage(port, volts)
	}

	if currents, err := e.cmd.AIOGetCurrentInput(port, 4); err != nil {
		log.Warn("aio current read failed", "error", err)
	} else {
		e.applyAIOCurrent(port, currents)
	}
}

func (e *Engine) applyAIOVoltage(port int, volts []int32) {
	entries := e.cfg.AIVoltage.Get()
	for ch, mv := range volts {
		_ = e.regs.Set(regmap.AIOVoltageAddr(port, ch), regmap.I32(mv))
		for _, entry := range entries {
			if entry.Port != port || entry.Channel != ch {
				continue
			}
			// Voltage-input sensor_type is reserved (design/031_CDU_Gateway_Data_Model.md §3): no
			// transform is currently defined, so the raw value passes
			// through as the scaled update.
			_ = e.regs.Set(entry.UpdateAddress, regmap.U16(clampToU16(mv)))
		}
	}
}

func (e *Engine) applyAIOCurrent(port int, currents []int32) {
	entries := e.cfg.AICurrent.Get()
	for ch, ua := range currents {
		_ = e.regs.Set(regmap.AIOCurrentAddr(port, ch), regmap.I32(ua))
		for _, entry := range entries {
			if entry.Port != port || entry.Channel != ch {
				continue
			}
			var scaled int32
			switch entry.SensorType {
			case sensorconfig.SensorPressure:
				scaled = PressureHundredthsBar(ua)
			default:
				scaled = FlowTenthsLPM(ua)
			}
			_ = e.regs.Set(entry.UpdateAddress, regmap.U16(clampToU16(scaled)))
		}
	}
}

func clampToU16(v int32) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

func (e *Engine) rtdCycle() {
	start := time.Now()
	for _, port := range e.sortedPorts(boards.KindRTD) {
		e.rtdPort(port)
	}
	e.pollModbusDevices()
	if e.observe != nil {
		e.observe("rtd", time.Since(start))
	}
}

func (e *Engine) rtdPort(port int) {
	log := slog.With("pipeline", "rtd", "port", port)

	if periods, err := e.cmd.CapturePWMGetFrequency(port, 8); err != nil {
		log.Warn("capture-pwm frequency read failed", "error", err)
	} else {
		for ch, p := range periods {
			_ = e.regs.Set(regmap.CapturePeriodAddr(port, ch), regmap.U32(p))
		}
	}

	resistances, err := e.cmd.RTDGetResistance(port, 8)
	if err != nil {
		log.Warn("rtd resistance read failed", "error", err)
		return
	}
	entries := e.cfg.Temperature.Get()
	for ch, r := range resistances {
		_ = e.regs.Set(regmap.RTDResistanceAddr(port, ch), regmap.U32(r))

		sensorType := sensorconfig.SensorPT100
		var updateAddr uint32
		hasUpdate := false
		for _, entry := range entries {
			if entry.Port == port && entry.Channel == ch {
				sensorType = entry.SensorType
				updateAddr = entry.UpdateAddress
				hasUpdate = true
				break
			}
		}

		var tenths int32
		if sensorType == sensorconfig.SensorPT1000 {
			tenths = PT1000TenthsC(r)
		} else {
			tenths = PT100TenthsC(r)
		}
		_ = e.regs.Set(regmap.RTDTemperatureAddr(port, ch), regmap.I32(tenths))
		if hasUpdate {
			_ = e.regs.Set(updateAddr, regmap.I32(tenths))
		}
	}
}

func (e *Engine) pollModbusDevices() {
	log := slog.With("pipeline", "rtd", "stage", "modbus-devices")
	for _, entry := range e.cfg.ModbusDevices.Get() {
		if !entry.IsReadFunction() {
			continue
		}
		if err := e.cmd.UARTSetBaudrate(entry.Port, entry.Baudrate); err != nil {
			log.Warn("uart baudrate set failed", "port", entry.Port, "name", entry.Name, "error", err)
			continue
		}
		count := entry.DataType.RegisterCount()
		if count == 0 {
			log.Warn("unknown modbus data type", "name", entry.Name, "data_type", entry.DataType)
			continue
		}
		regs, err := e.cmd.RS485Read(entry.Port, entry.SlaveID, entry.FunctionCode, entry.RegAddress, uint16(count))
		if err != nil {
			log.Warn("rs485 read failed", "port", entry.Port, "name", entry.Name, "error", err)
			continue
		}
		if err := e.applyModbusEntry(entry, regs); err != nil {
			log.Warn("apply modbus entry failed", "name", entry.Name, "error", err)
		}
	}
}

func (e *Engine) applyModbusEntry(entry sensorconfig.ModbusDeviceEntry, regs []uint16) error {
	numeric := decodeModbusNumeric(entry.DataType, regs)
	if entry.Scale != 0 {
		numeric *= float64(entry.Scale)
	}
	addr := entry.UpdateAddress
	switch entry.DataType {
	case sensorconfig.DataTypeI16:
		return e.regs.Set(addr, regmap.I16(int16(numeric)))
	case sensorconfig.DataTypeU16:
		return e.regs.Set(addr, regmap.U16(uint16(numeric)))
	case sensorconfig.DataTypeI32:
		return e.regs.Set(addr, regmap.I32(int32(numeric)))
	case sensorconfig.DataTypeU32:
		return e.regs.Set(addr, regmap.U32(uint32(numeric)))
	case sensorconfig.DataTypeF32:
		return e.regs.Set(addr, regmap.F32(float32(numeric)))
	case sensorconfig.DataTypeU64:
		return e.regs.Set(addr, regmap.U64(uint64(numeric)))
	default:
		return nil
	}
}

// decodeModbusNumeric decodes regs (big-endian on-wire words) per dt into a
// float64, before any scale is applied.
func decodeModbusNumeric(dt sensorconfig.ModbusDataType, regs []uint16) float64 {
	switch dt {
	case sensorconfig.DataTypeI16:
		return float64(int16(regs[0]))
	case sensorconfig.DataTypeU16:
		return float64(regs[0])
	case sensorconfig.DataTypeI32:
		return float64(int32(uint32(regs[0])<<16 | uint32(regs[1])))
	case sensorconfig.DataTypeU32:
		return float64(uint32(regs[0])<<16 | uint32(regs[1]))
	case sensorconfig.DataTypeF32:
		bits := uint32(regs[0])<<16 | uint32(regs[1])
		return float64(math.Float32frombits(bits))
	case sensorconfig.DataTypeU64:
		var buf [8]byte
		binary.BigEndian.PutUint16(buf[0:], regs[0])
		binary.BigEndian.PutUint16(buf[2:], regs[1])
		binary.BigEndian.PutUint16(buf[4:], regs[2])
		binary.BigEndian.PutUint16(buf[6:], regs[3])
		return float64(binary.BigEndian.Uint64(buf[:]))
	default:
		return 0
	}
}
