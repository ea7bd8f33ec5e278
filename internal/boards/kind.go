// Package boards implements the board-specific command layer (component C):
// typed, per-silicon operations built on top of the Modbus-RTU codec and HID
// transport. Every exported method performs exactly one write-then-read
// cycle (or chunked sequence thereof) and returns a typed HardwareError on
// failure instead of the original firmware's raw integer return codes.
package boards

// Kind identifies which board class is resident at a logical HID port,
// replacing dispatch on a raw product-ID integer scattered through call
// sites.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindRTD
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IOBoard"
	case KindRTD:
		return "RTDBoard"
	default:
		return "Unknown"
	}
}

// USB product IDs distinguishing the two resident board classes.
const (
	PIDIOBoard  uint16 = 0xA2
	PIDRTDBoard uint16 = 0xA3
)

// KindFromPID maps a USB product ID to its board Kind.
func KindFromPID(pid uint16) Kind {
	switch pid {
	case PIDIOBoard:
		return KindIO
	case PIDRTDBoard:
		return KindRTD
	default:
		return KindUnknown
	}
}
