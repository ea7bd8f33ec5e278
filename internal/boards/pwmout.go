package boards

// PWM output register bases: a single 32-bit frequency register and one
// 16-bit duty register per channel (0-7).
const (
	pwmFrequency uint16 = 0x3E0
	pwmDuty0     uint16 = 0x300
)

// SetFrequency sets the shared PWM output frequency in Hz.
func (c *Commander) PWMOutputSetFrequency(port int, hz uint32) error {
	hi, lo := wordsFromU32(hz)
	return c.writeMultiple(port, mbrtuOnBoardID, pwmFrequency, []uint16{hi, lo})
}

// GetFrequency reads the shared PWM output frequency in Hz.
func (c *Commander) PWMOutputGetFrequency(port int) (uint32, error) {
	regs, err := c.readRegisters(port, mbrtuOnBoardID, pwmFrequency, 2)
	if err != nil {
		return 0, err
	}
	return u32FromWords(regs[0], regs[1]), nil
}

// SetDuty sets channel ch's (0-7) duty cycle, 0..=100.
func (c *Commander) PWMOutputSetDuty(port int, ch int, duty uint16) error {
	return c.writeSingle(port, mbrtuOnBoardID, pwmDuty0+uint16(ch), duty)
}

// SetAllDuty sets all 8 channels' duty cycles in one frame.
func (c *Commander) PWMOutputSetAllDuty(port int, duty [8]uint16) error {
	return c.writeMultiple(port, mbrtuOnBoardID, pwmDuty0, duty[:])
}

// GetDuty reads count consecutive channels (0-7) of duty cycle.
func (c *Commander) PWMOutputGetDuty(port int, ch int, count int) ([]uint16, error) {
	return c.readRegisters(port, mbrtuOnBoardID, pwmDuty0+uint16(ch), uint16(count))
}
