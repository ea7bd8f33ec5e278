// Package hid implements the HID transport (component A): enumeration and
// serialized request/response exchange with up to regmap.MaxHIDPorts
// attached I/O boards, each identified by its USB vendor/product ID and
// addressed thereafter by a stable logical port number.
package hid

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a blocking read does not complete within the
// caller-supplied deadline.
var ErrTimeout = errors.New("hid: request timed out")

// ErrNotOpen is returned when an operation targets a port that has no open
// device.
var ErrNotOpen = errors.New("hid: port not open")

// ErrIO wraps a lower-level I/O failure reported by the transport.
type ErrIO struct {
	Port int
	Err  error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("hid: port %d: %v", e.Port, e.Err)
}

func (e *ErrIO) Unwrap() error { return e.Err }

// Transport is the narrow interface the board command layer (component C)
// and the acquisition engine (component E) depend on. A real transport is
// backed by github.com/sstallion/go-hid; tests use a fake in-memory
// implementation.
type Transport interface {
	// Write sends buf as a single HID output report to port and returns the
	// number of bytes actually written.
	Write(port int, buf []byte) (int, error)

	// Read blocks until a report arrives on port or timeout elapses,
	// returning ErrTimeout on expiry.
	Read(port int, buf []byte, timeout time.Duration) (int, error)

	// PortPID reports the USB product ID bound to a logical port, used by
	// the board layer to select which register/command set applies.
	PortPID(port int) (uint16, error)

	// Ports returns the logical port numbers currently bound to an open
	// device, in ascending order.
	Ports() []int

	// Lock acquires port's exclusive round-trip lock and returns a function
	// to release it. A request's write and its matching read must happen
	// between Lock and the returned unlock so concurrent callers never
	// interleave requests to the same port (design/045_CDU_Gateway_Concurrency_Model.md §5).
	Lock(port int) (unlock func(), err error)

	// Close releases all open device handles.
	Close() error
}
