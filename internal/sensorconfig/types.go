// Package sensorconfig implements the sensor-config store (component F):
// typed JSON-backed configuration lists consumed by the acquisition engine
// and rewritten wholesale by the Redfish Config.Write action.
package sensorconfig

// TemperatureSensorType distinguishes which RTD element a temperature entry
// describes, since PT100 and PT1000 use the same transform with a
// different reference resistance.
type TemperatureSensorType int

const (
	SensorPT100 TemperatureSensorType = 0
	SensorPT1000 TemperatureSensorType = 1
)

// TemperatureEntry maps one RTD channel to its register-map update address.
type TemperatureEntry struct {
	Port          int                   `json:"port"`
	Channel       int                   `json:"channel"`
	SensorType    TemperatureSensorType `json:"sensor_type"`
	UpdateAddress uint32                `json:"update_address"`
	Name          string                `json:"name"`
}

// AICurrentSensorType distinguishes what physical quantity a 4-20mA current
// input entry represents.
type AICurrentSensorType int

const (
	SensorFlow     AICurrentSensorType = 0
	SensorPressure AICurrentSensorType = 1
)

// AICurrentEntry maps one AIO current-input channel to its update address.
type AICurrentEntry struct {
	Port          int                 `json:"port"`
	Channel       int                 `json:"channel"`
	SensorType    AICurrentSensorType `json:"sensor_type"`
	UpdateAddress uint32              `json:"update_address"`
	Name          string              `json:"name"`
}

// AIVoltageEntry maps one AIO voltage-input channel to its update address.
// The sensor_type field is reserved (design/031_CDU_Gateway_Data_Model.md §3): no transform is currently
// defined for voltage inputs, only pass-through scaling.
type AIVoltageEntry struct {
	Port          int    `json:"port"`
	Channel       int    `json:"channel"`
	SensorType    int    `json:"sensor_type"`
	UpdateAddress uint32 `json:"update_address"`
	Name          string `json:"name"`
}

// AOEntry describes an analog output channel's logical name and target
// channel, mirrored for both the current-output and voltage-output config
// lists.
type AOEntry struct {
	Port    int    `json:"port"`
	Channel int    `json:"channel"`
	Name    string `json:"name"`
}

// ModbusDataType names the register width/signedness a Modbus device
// config entry's reg_address should be decoded as, matching the widths
// understood by the register map (component D).
type ModbusDataType string

const (
	DataTypeI16 ModbusDataType = "i16"
	DataTypeU16 ModbusDataType = "u16"
	DataTypeI32 ModbusDataType = "i32"
	DataTypeU32 ModbusDataType = "u32"
	DataTypeF32 ModbusDataType = "f32"
	DataTypeU64 ModbusDataType = "u64"
)

// RegisterCount returns how many 16-bit Modbus registers a value of this
// type occupies on the wire.
func (d ModbusDataType) RegisterCount() int {
	switch d {
	case DataTypeI16, DataTypeU16:
		return 1
	case DataTypeI32, DataTypeU32, DataTypeF32:
		return 2
	case DataTypeU64:
		return 4
	default:
		return 0
	}
}

// ModbusDeviceEntry drives one RS-485 bridged slave's per-cycle poll (when
// FunctionCode is a read code) or identifies a write target the Modbus TCP
// bridge re-routes to (when FunctionCode is 6 or 16).
type ModbusDeviceEntry struct {
	Port          int            `json:"port"`
	Baudrate      uint32         `json:"baudrate"`
	SlaveID       byte           `json:"slave_id"`
	FunctionCode  byte           `json:"function_code"`
	RegAddress    uint16         `json:"reg_address"`
	DataType      ModbusDataType `json:"data_type"`
	Scale         float32        `json:"scale"`
	UpdateAddress uint32         `json:"update_address"`
	Name          string         `json:"name"`
}

// IsReadFunction reports whether the entry describes a per-cycle read
// (1/2/3/4) rather than a write-route target (6/16).
func (e ModbusDeviceEntry) IsReadFunction() bool {
	switch e.FunctionCode {
	case 1, 2, 3, 4:
		return true
	default:
		return false
	}
}

// SystemConfig is a single JSON object, not a list, stored the same way as
// the other tables.
type SystemConfig struct {
	UnitName    string `json:"unit_name"`
	Location    string `json:"location"`
	TimeZone    string `json:"time_zone"`
	PollOverlay bool   `json:"poll_overlay,omitempty"`
}
