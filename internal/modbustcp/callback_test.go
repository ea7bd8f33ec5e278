package modbustcp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/hid"
	"github.com/dexatek/cdu-gateway/internal/mbrtu"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
)

type fakeClock struct {
	set time.Time
}

func (c *fakeClock) Set(t time.Time) error {
	c.set = t
	return nil
}

func respondWrite() func(req []byte) []byte {
	return func(req []byte) []byte { return req }
}

func newTestConfig(t *testing.T) *sensorconfig.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := sensorconfig.Load(sensorconfig.Paths{
		Temperature:   filepath.Join(dir, "temperature.json"),
		AICurrent:     filepath.Join(dir, "ai_current.json"),
		AIVoltage:     filepath.Join(dir, "ai_voltage.json"),
		AOCurrent:     filepath.Join(dir, "ao_current.json"),
		AOVoltage:     filepath.Join(dir, "ao_voltage.json"),
		ModbusDevices: filepath.Join(dir, "modbus_devices.json"),
		System:        filepath.Join(dir, "system.json"),
	})
	if err != nil {
		t.Fatalf("sensorconfig.Load: %v", err)
	}
	return cfg
}

func TestWriteCallbackDirectUpdateSavesToDisk(t *testing.T) {
	regs := regmap.New(regmap.HIDBase, regmap.MapCount)
	cfg := newTestConfig(t)
	f := hid.NewFake(map[int]uint16{0: boards.PIDIOBoard})
	cmd := boards.New(f, 50*time.Millisecond)
	statePath := filepath.Join(t.TempDir(), "regmap.bin")

	cb := NewWriteCallback(regs, cfg, cmd, &fakeClock{}, statePath)
	addr := regmap.GPIOOutputAddr(0, 0)
	if err := cb(addr, 55); err != nil {
		t.Fatalf("callback: %v", err)
	}

	raw, err := regs.GetRaw(addr)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if raw != 55 {
		t.Fatalf("raw = %d, want 55", raw)
	}

	saved := regmap.New(regmap.HIDBase, regmap.MapCount)
	if err := saved.LoadFromDisk(statePath); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}
	savedRaw, _ := saved.GetRaw(addr)
	if savedRaw != 55 {
		t.Fatalf("persisted raw = %d, want 55", savedRaw)
	}
}

func TestWriteCallbackBridgesToRS485(t *testing.T) {
	regs := regmap.New(regmap.HIDBase, regmap.MapCount)
	cfg := newTestConfig(t)

	bridgeAddr := regmap.RTCBase - 1
	if err := cfg.ModbusDevices.Set([]sensorconfig.ModbusDeviceEntry{
		{
			Port:          0,
			Baudrate:      9600,
			SlaveID:       5,
			FunctionCode:  mbrtu.FuncWriteSingleRegister,
			RegAddress:    10,
			DataType:      sensorconfig.DataTypeU16,
			UpdateAddress: bridgeAddr,
			Name:          "pump-setpoint",
		},
	}, nil); err != nil {
		t.Fatalf("ModbusDevices.Set: %v", err)
	}

	f := hid.NewFake(map[int]uint16{0: boards.PIDRTDBoard})
	var sawWrite bool
	f.Handle(0, func(req []byte) []byte {
		if len(req) >= 2 && req[1] == mbrtu.FuncWriteSingleRegister {
			sawWrite = true
		}
		return respondWrite()(req)
	})
	cmd := boards.New(f, 50*time.Millisecond)
	statePath := filepath.Join(t.TempDir(), "regmap.bin")

	cb := NewWriteCallback(regs, cfg, cmd, &fakeClock{}, statePath)
	if err := cb(bridgeAddr, 77); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if !sawWrite {
		t.Fatal("expected RS-485 single-register write to have been issued")
	}

	raw, err := regs.GetRaw(bridgeAddr)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if raw != 0 {
		t.Fatalf("register map should not be updated directly on a bridged write, got %d", raw)
	}
}

func TestWriteCallbackSetsRTC(t *testing.T) {
	regs := regmap.New(regmap.RTCBase, 6)
	cfg := newTestConfig(t)
	f := hid.NewFake(map[int]uint16{0: boards.PIDIOBoard})
	cmd := boards.New(f, 50*time.Millisecond)
	statePath := filepath.Join(t.TempDir(), "regmap.bin")
	clock := &fakeClock{}

	cb := NewWriteCallback(regs, cfg, cmd, clock, statePath)

	for field, v := range map[uint32]uint16{
		regmap.OffRTCYear:   2026,
		regmap.OffRTCMonth:  7,
		regmap.OffRTCDay:    30,
		regmap.OffRTCHour:   12,
		regmap.OffRTCMinute: 0,
	} {
		if err := regs.SetRaw(regmap.RTCAddr(field), v); err != nil {
			t.Fatalf("SetRaw(%d): %v", field, err)
		}
	}

	if err := cb(regmap.RTCAddr(regmap.OffRTCSecond), 15); err != nil {
		t.Fatalf("callback: %v", err)
	}

	if clock.set.Year() != 2026 || clock.set.Month() != time.July || clock.set.Day() != 30 {
		t.Fatalf("clock set to %v, want 2026-07-30", clock.set)
	}
	if clock.set.Second() != 15 {
		t.Fatalf("clock seconds = %d, want 15", clock.set.Second())
	}
}
