package boards

import "fmt"

// UART parity settings.
type Parity uint16

const (
	ParityNone Parity = 0
	ParityOdd  Parity = 1
	ParityEven Parity = 2
)

// UART setting register addresses: a 32-bit baudrate slot followed by
// single-register databits/parity/stopbits fields.
const (
	uartBaudrate uint16 = 0xC00
	uartDatabits uint16 = 0xC02
	uartParity   uint16 = 0xC03
	uartStopbits uint16 = 0xC04
)

// SetBaudrate configures the RS-485 bridge UART's baud rate.
func (c *Commander) UARTSetBaudrate(port int, baud uint32) error {
	hi, lo := wordsFromU32(baud)
	return c.writeMultiple(port, mbrtuOnBoardID, uartBaudrate, []uint16{hi, lo})
}

// SetDatabits configures data bits per character (7 or 8).
func (c *Commander) UARTSetDatabits(port int, bits int) error {
	if bits != 7 && bits != 8 {
		return fmt.Errorf("boards: UART databits %d not in {7,8}", bits)
	}
	return c.writeSingle(port, mbrtuOnBoardID, uartDatabits, uint16(bits))
}

// SetParity configures UART parity.
func (c *Commander) UARTSetParity(port int, p Parity) error {
	return c.writeSingle(port, mbrtuOnBoardID, uartParity, uint16(p))
}

// SetStopbits configures stop bits (1 or 2).
func (c *Commander) UARTSetStopbits(port int, bits int) error {
	if bits != 1 && bits != 2 {
		return fmt.Errorf("boards: UART stopbits %d not in {1,2}", bits)
	}
	return c.writeSingle(port, mbrtuOnBoardID, uartStopbits, uint16(bits))
}
