package regmap

// Layout constants from design/031_CDU_Gateway_Data_Model.md §3. Ports are addressed as
// HID_BASE + port*PORT_STRIDE + field_offset; the AIO and RTD board classes
// use distinct strides so the same port index can be reinterpreted against
// either layout depending on which board class is resident there.
const (
	MaxHIDPorts = 4

	HIDBase        uint32 = 1000
	AIOPortStride  uint32 = 64
	RTDPortStride  uint32 = 64

	// AIO board field offsets (within one AIOPortStride block).
	OffGPIOInput0  = 0 // GPIO_INPUT_0..7  (u16 each)
	OffGPIOOutput0 = 8 // GPIO_OUTPUT_0..7 (u16 each)
	OffAIOModeA    = 16
	OffAIOVoltage0 = 20 // 4 ch, i32 each -> 8 words
	OffAIOCurrent0 = 28 // 4 ch, i32 each -> 8 words
	OffBoardVID    = 36
	OffBoardPID    = 37

	// RTD board field offsets (within one RTDPortStride block), in a
	// disjoint address region so both layouts can coexist.
	RTDBase            uint32 = HIDBase + MaxHIDPorts*AIOPortStride
	OffCapturePeriod0  = 0  // 8 ch, u32 each -> 16 words
	OffRTDResistance0  = 16 // 8 ch, u32 each -> 16 words
	OffRTDTemperature0 = 32 // 8 ch, i32 each -> 16 words (transformed)
	OffRTDBoardVID     = 48
	OffRTDBoardPID     = 49

	// RTC fields, a small fixed block after the RTD region.
	RTCBase   uint32 = RTDBase + MaxHIDPorts*RTDPortStride
	OffRTCYear   = 0
	OffRTCMonth  = 1
	OffRTCDay    = 2
	OffRTCHour   = 3
	OffRTCMinute = 4
	OffRTCSecond = 5
	rtcWords     = 6

	// MapCount is the total word count of the shared register map.
	MapCount uint32 = (RTCBase - HIDBase) + rtcWords
)

// AIOAddr returns the absolute address of an AIO-board field at a given port.
func AIOAddr(port int, fieldOffset uint32) uint32 {
	return HIDBase + uint32(port)*AIOPortStride + fieldOffset
}

// RTDAddr returns the absolute address of an RTD-board field at a given port.
func RTDAddr(port int, fieldOffset uint32) uint32 {
	return RTDBase + uint32(port)*RTDPortStride + fieldOffset
}

// GPIOInputAddr returns the address of GPIO input channel ch (0-7) on port.
func GPIOInputAddr(port, ch int) uint32 { return AIOAddr(port, OffGPIOInput0+uint32(ch)) }

// GPIOOutputAddr returns the address of GPIO output channel ch (0-7) on port.
func GPIOOutputAddr(port, ch int) uint32 { return AIOAddr(port, OffGPIOOutput0+uint32(ch)) }

// AIOModeAddr returns the address of the AIO channel-mode register (0-3).
func AIOModeAddr(port, ch int) uint32 { return AIOAddr(port, OffAIOModeA+uint32(ch)) }

// AIOVoltageAddr returns the 2-word address of the AIO voltage channel (0-3).
func AIOVoltageAddr(port, ch int) uint32 { return AIOAddr(port, OffAIOVoltage0+uint32(ch)*2) }

// AIOCurrentAddr returns the 2-word address of the AIO current channel (0-3).
func AIOCurrentAddr(port, ch int) uint32 { return AIOAddr(port, OffAIOCurrent0+uint32(ch)*2) }

// CapturePeriodAddr returns the 2-word address of capture-PWM channel ch (0-7).
func CapturePeriodAddr(port, ch int) uint32 { return RTDAddr(port, OffCapturePeriod0+uint32(ch)*2) }

// RTDResistanceAddr returns the 2-word address of RTD channel ch (0-7).
func RTDResistanceAddr(port, ch int) uint32 { return RTDAddr(port, OffRTDResistance0+uint32(ch)*2) }

// RTDTemperatureAddr returns the 2-word address of the transformed RTD
// temperature for channel ch (0-7).
func RTDTemperatureAddr(port, ch int) uint32 { return RTDAddr(port, OffRTDTemperature0+uint32(ch)*2) }

// RTCAddr returns the address of one of the OffRTC* fields.
func RTCAddr(field uint32) uint32 { return RTCBase + field }
