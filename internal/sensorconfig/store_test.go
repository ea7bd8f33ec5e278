package sensorconfig

import (
	"path/filepath"
	"testing"
)

func TestStoreMissingFileIsEmpty(t *testing.T) {
	s, err := NewStore[TemperatureEntry](filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if len(s.Get()) != 0 {
		t.Fatalf("expected empty list, got %v", s.Get())
	}
}

func TestStoreSetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temperature_configs")
	s, err := NewStore[TemperatureEntry](path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	entries := []TemperatureEntry{
		{Port: 0, Channel: 0, SensorType: SensorPT100, UpdateAddress: 2000, Name: "supply"},
		{Port: 0, Channel: 1, SensorType: SensorPT1000, UpdateAddress: 2004, Name: "return"},
	}
	if err := s.Set(entries, func(l []TemperatureEntry) error {
		return ValidateNoDuplicateUpdateAddress(l, func(e TemperatureEntry) uint32 { return e.UpdateAddress })
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s2, err := NewStore[TemperatureEntry](path)
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if len(s2.Get()) != 2 || s2.Get()[1].Name != "return" {
		t.Fatalf("reloaded list = %+v", s2.Get())
	}
}

func TestStoreRejectsDuplicateUpdateAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temperature_configs")
	s, err := NewStore[TemperatureEntry](path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	entries := []TemperatureEntry{
		{Port: 0, Channel: 0, UpdateAddress: 2000},
		{Port: 0, Channel: 1, UpdateAddress: 2000},
	}
	err = s.Set(entries, func(l []TemperatureEntry) error {
		return ValidateNoDuplicateUpdateAddress(l, func(e TemperatureEntry) uint32 { return e.UpdateAddress })
	})
	if err == nil {
		t.Fatal("expected duplicate update_address rejection")
	}
	if len(s.Get()) != 0 {
		t.Fatal("rejected Set must not mutate the store")
	}
}

func TestObjectStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system_configs")
	s, err := NewObjectStore[SystemConfig](path)
	if err != nil {
		t.Fatalf("NewObjectStore: %v", err)
	}
	cfg := SystemConfig{UnitName: "CDU-01", Location: "Rack 3", TimeZone: "UTC"}
	if err := s.Set(cfg); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s2, err := NewObjectStore[SystemConfig](path)
	if err != nil {
		t.Fatalf("NewObjectStore reload: %v", err)
	}
	if s2.Get().UnitName != "CDU-01" {
		t.Fatalf("reloaded = %+v", s2.Get())
	}
}

func TestModbusDataTypeRegisterCount(t *testing.T) {
	cases := map[ModbusDataType]int{
		DataTypeI16: 1, DataTypeU16: 1,
		DataTypeI32: 2, DataTypeU32: 2, DataTypeF32: 2,
		DataTypeU64: 4,
	}
	for dt, want := range cases {
		if got := dt.RegisterCount(); got != want {
			t.Errorf("%s.RegisterCount() = %d, want %d", dt, got, want)
		}
	}
}

func TestModbusDeviceEntryIsReadFunction(t *testing.T) {
	for fc := byte(1); fc <= 4; fc++ {
		e := ModbusDeviceEntry{FunctionCode: fc}
		if !e.IsReadFunction() {
			t.Errorf("FC %d should be a read function", fc)
		}
	}
	for _, fc := range []byte{6, 16} {
		e := ModbusDeviceEntry{FunctionCode: fc}
		if e.IsReadFunction() {
			t.Errorf("FC %d should not be a read function", fc)
		}
	}
}
