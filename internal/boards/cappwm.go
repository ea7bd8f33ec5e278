package boards

// Capture-PWM input register bases. Duty is a single 16-bit register per
// channel; frequency (period, µs) and pulse width are 2-register (32-bit)
// slots per channel.
const (
	capPWMDuty0       uint16 = 0x400
	capPWMFreq0       uint16 = 0x410
	capPWMPulseWidth0 uint16 = 0x420
)

// GetDuty reads count channels (1-8) of capture-PWM duty cycle.
func (c *Commander) CapturePWMGetDuty(port int, count int) ([]uint16, error) {
	return c.readRegisters(port, mbrtuOnBoardID, capPWMDuty0, uint16(count))
}

// GetFrequency reads count channels (1-8) of capture-PWM period in µs.
func (c *Commander) CapturePWMGetFrequency(port int, count int) ([]uint32, error) {
	return c.readU32Channels(port, capPWMFreq0, count)
}

// GetPulseWidth reads count channels (1-8) of capture-PWM pulse width.
func (c *Commander) CapturePWMGetPulseWidth(port int, count int) ([]uint32, error) {
	return c.readU32Channels(port, capPWMPulseWidth0, count)
}

func (c *Commander) readU32Channels(port int, base uint16, count int) ([]uint32, error) {
	regs, err := c.readRegisters(port, mbrtuOnBoardID, base, uint16(count*2))
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := 0; i < count; i++ {
		out[i] = u32FromWords(regs[i*2], regs[i*2+1])
	}
	return out, nil
}
