package modbustcp

import (
	"log/slog"
	"time"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/mbrtu"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
)

// WriteCallback is invoked once per register written through the Modbus TCP
// server (design/039_CDU_Gateway_Modbus_TCP_Server.md §4.H: "invoke a registered callback with
// (address, type, value)"). It owns the three-way dispatch grounded on
// original_source's control_logic_modbus_manager_callback: an RTC-address
// write, a write-route bridge to an RS-485 slave, or a direct register-map
// update (which the server then persists to disk).
type WriteCallback func(addr uint32, value uint16) error

// rtcAddresses lists every register-map address the RTC-set special case
// applies to.
func rtcAddresses() [6]uint32 {
	return [6]uint32{
		regmap.RTCAddr(regmap.OffRTCYear),
		regmap.RTCAddr(regmap.OffRTCMonth),
		regmap.RTCAddr(regmap.OffRTCDay),
		regmap.RTCAddr(regmap.OffRTCHour),
		regmap.RTCAddr(regmap.OffRTCMinute),
		regmap.RTCAddr(regmap.OffRTCSecond),
	}
}

func isRTCAddress(addr uint32) bool {
	for _, a := range rtcAddresses() {
		if a == addr {
			return true
		}
	}
	return false
}

// NewWriteCallback builds the dispatcher described above. statePath is where
// the register map is persisted on a direct (non-bridged) write, matching
// modbus_manager_data_mapping_save in the original source.
func NewWriteCallback(regs *regmap.Map, cfg *sensorconfig.Config, cmd *boards.Commander, clock Clock, statePath string) WriteCallback {
	return func(addr uint32, value uint16) error {
		if isRTCAddress(addr) {
			return handleRTCWrite(regs, clock, statePath, addr, value)
		}

		for _, entry := range cfg.ModbusDevices.Get() {
			if entry.UpdateAddress == addr && entry.FunctionCode == mbrtu.FuncWriteSingleRegister {
				slog.Info("modbus tcp write bridged to rs485 device", "address", addr, "value", value, "name", entry.Name)
				return cmd.RS485WriteSingle(entry.Port, entry.SlaveID, entry.RegAddress, value)
			}
		}

		slog.Info("modbus tcp write direct to register map", "address", addr, "value", value)
		if err := regs.SetRaw(addr, value); err != nil {
			return err
		}
		return regs.SaveToDisk(statePath)
	}
}

// handleRTCWrite ports _control_logic_rtc_set: the written field is applied
// to the table first, then all six RTC words are read back and used to set
// the host clock. The original's auto-update-thread disable/enable guard
// has no equivalent here since no component continuously syncs the host
// clock back into these registers; only the set-and-save behavior applies.
func handleRTCWrite(regs *regmap.Map, clock Clock, statePath string, addr uint32, value uint16) error {
	if err := regs.SetRaw(addr, value); err != nil {
		return err
	}

	year, err := regs.GetRaw(regmap.RTCAddr(regmap.OffRTCYear))
	if err != nil {
		return err
	}
	month, err := regs.GetRaw(regmap.RTCAddr(regmap.OffRTCMonth))
	if err != nil {
		return err
	}
	day, err := regs.GetRaw(regmap.RTCAddr(regmap.OffRTCDay))
	if err != nil {
		return err
	}
	hour, err := regs.GetRaw(regmap.RTCAddr(regmap.OffRTCHour))
	if err != nil {
		return err
	}
	minute, err := regs.GetRaw(regmap.RTCAddr(regmap.OffRTCMinute))
	if err != nil {
		return err
	}
	second, err := regs.GetRaw(regmap.RTCAddr(regmap.OffRTCSecond))
	if err != nil {
		return err
	}

	t := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(second), 0, time.Local)
	if err := clock.Set(t); err != nil {
		slog.Warn("rtc set failed", "time", t, "error", err)
		return err
	}
	slog.Info("rtc set from modbus tcp write", "time", t)
	return regs.SaveToDisk(statePath)
}
