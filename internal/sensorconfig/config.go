package sensorconfig

import "fmt"

// Config bundles every sensor-config and device-config store the
// acquisition engine and the Redfish Config.Read/Write actions operate on.
type Config struct {
	Temperature *Store[TemperatureEntry]
	AICurrent   *Store[AICurrentEntry]
	AIVoltage   *Store[AIVoltageEntry]
	AOCurrent   *Store[AOEntry]
	AOVoltage   *Store[AOEntry]
	ModbusDevices *Store[ModbusDeviceEntry]
	System      *ObjectStore[SystemConfig]
}

// Paths names the on-disk location of each config list, matching the
// design/046_CDU_Gateway_External_Interfaces.md §6 external-interfaces table.
type Paths struct {
	Temperature   string
	AICurrent     string
	AIVoltage     string
	AOCurrent     string
	AOVoltage     string
	ModbusDevices string
	System        string
}

// Load opens every store named in p, applying each list's load-time
// invariants.
func Load(p Paths) (*Config, error) {
	temp, err := NewStore[TemperatureEntry](p.Temperature)
	if err != nil {
		return nil, err
	}
	aiCur, err := NewStore[AICurrentEntry](p.AICurrent)
	if err != nil {
		return nil, err
	}
	aiVolt, err := NewStore[AIVoltageEntry](p.AIVoltage)
	if err != nil {
		return nil, err
	}
	aoCur, err := NewStore[AOEntry](p.AOCurrent)
	if err != nil {
		return nil, err
	}
	aoVolt, err := NewStore[AOEntry](p.AOVoltage)
	if err != nil {
		return nil, err
	}
	devices, err := NewStore[ModbusDeviceEntry](p.ModbusDevices)
	if err != nil {
		return nil, err
	}
	sys, err := NewObjectStore[SystemConfig](p.System)
	if err != nil {
		return nil, err
	}
	return &Config{
		Temperature:   temp,
		AICurrent:     aiCur,
		AIVoltage:     aiVolt,
		AOCurrent:     aoCur,
		AOVoltage:     aoVolt,
		ModbusDevices: devices,
		System:        sys,
	}, nil
}

// ValidateNoDuplicateUpdateAddress rejects a list containing two entries
// that target the same update address (design/031_CDU_Gateway_Data_Model.md §3: "undefined semantics;
// implementer MAY reject on load" — this implementation rejects).
func ValidateNoDuplicateUpdateAddress[T any](list []T, addrOf func(T) uint32) error {
	seen := make(map[uint32]bool, len(list))
	for _, e := range list {
		addr := addrOf(e)
		if seen[addr] {
			return fmt.Errorf("sensorconfig: duplicate update_address %d", addr)
		}
		seen[addr] = true
	}
	return nil
}
