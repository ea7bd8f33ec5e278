package boards

import "fmt"

// AD74416H analog I/O channel modes.
type AIOMode uint16

const (
	AIOModeVoltageOut       AIOMode = 0
	AIOModeCurrentOut       AIOMode = 1
	AIOModeVoltageIn        AIOMode = 2
	AIOModeCurrentInLoop    AIOMode = 3
	AIOModeCurrentInExternal AIOMode = 4
)

// On-wire register bases for the AD74416H command set, one register per
// channel for mode and one 2-register (32-bit) slot per channel for
// current-limit/value fields.
const (
	aioSetModeChA      uint16 = 0x500
	aioVoutCLimitChA   uint16 = 0x600
	aioCinCLimitChA    uint16 = 0x700
	aioVoltageOutChA   uint16 = 0x800
	aioCurrentOutChA   uint16 = 0x900
	aioGetVoltageInChA uint16 = 0xA00
	aioGetCurrentInChA uint16 = 0xB00
)

func (c *Commander) checkAIOChannel(ch int) error {
	if ch < 0 || ch > 3 {
		return fmt.Errorf("boards: AIO channel %d out of range [0,3]", ch)
	}
	return nil
}

// SetMode configures channel ch (0-3, A-D) to mode.
func (c *Commander) AIOSetMode(port int, ch int, mode AIOMode) error {
	if err := c.checkAIOChannel(ch); err != nil {
		return err
	}
	return c.writeSingle(port, mbrtuOnBoardID, aioSetModeChA+uint16(ch), uint16(mode))
}

// GetMode reads the current mode for the first count channels (1 or 4).
func (c *Commander) AIOGetMode(port int, count int) ([]AIOMode, error) {
	regs, err := c.readRegisters(port, mbrtuOnBoardID, aioSetModeChA, uint16(count))
	if err != nil {
		return nil, err
	}
	modes := make([]AIOMode, len(regs))
	for i, r := range regs {
		modes[i] = AIOMode(r)
	}
	return modes, nil
}

// GetVoltageInput reads count channels (1 or 4) of voltage input in mV.
func (c *Commander) AIOGetVoltageInput(port int, count int) ([]int32, error) {
	return c.readI32Channels(port, aioGetVoltageInChA, count)
}

// GetCurrentInput reads count channels (1 or 4) of current input in µA.
func (c *Commander) AIOGetCurrentInput(port int, count int) ([]int32, error) {
	return c.readI32Channels(port, aioGetCurrentInChA, count)
}

func (c *Commander) readI32Channels(port int, base uint16, count int) ([]int32, error) {
	regs, err := c.readRegisters(port, mbrtuOnBoardID, base, uint16(count*2))
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := 0; i < count; i++ {
		out[i] = i32FromWords(regs[i*2], regs[i*2+1])
	}
	return out, nil
}

// VoltageOutput sets channel ch's output voltage in mV.
func (c *Commander) AIOVoltageOutput(port int, ch int, mv int32) error {
	if err := c.checkAIOChannel(ch); err != nil {
		return err
	}
	hi, lo := wordsFromI32(mv)
	return c.writeMultiple(port, mbrtuOnBoardID, aioVoltageOutChA+uint16(ch)*2, []uint16{hi, lo})
}

// CurrentOutput sets channel ch's output current in µA.
func (c *Commander) AIOCurrentOutput(port int, ch int, ua int32) error {
	if err := c.checkAIOChannel(ch); err != nil {
		return err
	}
	hi, lo := wordsFromI32(ua)
	return c.writeMultiple(port, mbrtuOnBoardID, aioCurrentOutChA+uint16(ch)*2, []uint16{hi, lo})
}

// SetVoutCLimit sets channel ch's voltage-output current limit in µA.
func (c *Commander) AIOSetVoutCLimit(port int, ch int, ua int32) error {
	if err := c.checkAIOChannel(ch); err != nil {
		return err
	}
	hi, lo := wordsFromI32(ua)
	return c.writeMultiple(port, mbrtuOnBoardID, aioVoutCLimitChA+uint16(ch)*2, []uint16{hi, lo})
}

// SetCinCLimit sets channel ch's current-input loop current limit in µA.
func (c *Commander) AIOSetCinCLimit(port int, ch int, ua int32) error {
	if err := c.checkAIOChannel(ch); err != nil {
		return err
	}
	hi, lo := wordsFromI32(ua)
	return c.writeMultiple(port, mbrtuOnBoardID, aioCinCLimitChA+uint16(ch)*2, []uint16{hi, lo})
}
