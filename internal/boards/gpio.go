package boards

// GPIO output/input register addresses, on-wire (device-side), distinct
// from the host-side register-map addresses in component D.
const (
	gpioOutput0 uint16 = 0x100
	gpioInput0  uint16 = 0x200
)

// GPIOOutput sets one digital output channel (0-7) to value (0 or 1).
func (c *Commander) GPIOOutput(port int, ch int, value uint16) error {
	return c.writeSingle(port, mbrtuOnBoardID, gpioOutput0+uint16(ch), value)
}

// GPIOOutputAll sets all 8 digital output channels in one frame.
func (c *Commander) GPIOOutputAll(port int, values [8]uint16) error {
	return c.writeMultiple(port, mbrtuOnBoardID, gpioOutput0, values[:])
}

// GPIOStatus reads count consecutive input channels starting at ch (0-7).
func (c *Commander) GPIOInputStatus(port int, ch int, count int) ([]uint16, error) {
	return c.readRegisters(port, mbrtuOnBoardID, gpioInput0+uint16(ch), uint16(count))
}

// GPIOOutputStatus reads back count consecutive output channels starting at ch.
func (c *Commander) GPIOOutputStatus(port int, ch int, count int) ([]uint16, error) {
	return c.readRegisters(port, mbrtuOnBoardID, gpioOutput0+uint16(ch), uint16(count))
}
