package boards

// AD7124 RTD resistance base register, one 2-register (32-bit, 0.01 Ω
// units) slot per channel.
const rtdGetResistanceCh0 uint16 = 0x1000

// GetResistance reads count channels (1 or 8) of RTD resistance in 0.01 Ω
// units.
func (c *Commander) RTDGetResistance(port int, count int) ([]uint32, error) {
	regs, err := c.readRegisters(port, mbrtuOnBoardID, rtdGetResistanceCh0, uint16(count*2))
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := 0; i < count; i++ {
		out[i] = u32FromWords(regs[i*2], regs[i*2+1])
	}
	return out, nil
}
