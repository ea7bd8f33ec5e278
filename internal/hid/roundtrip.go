package hid

import (
	"time"

	"github.com/dexatek/cdu-gateway/internal/mbrtu"
)

// DefaultTimeout bounds one Modbus-RTU request/response round trip over the
// HID transport before it is treated as a device timeout.
const DefaultTimeout = 250 * time.Millisecond

// RoundTrip writes req to port and returns the response frame read back,
// padding/truncating to the HID report size on either side. It holds port's
// lock for the full write+read so concurrent callers never interleave
// requests to the same port (design/045_CDU_Gateway_Concurrency_Model.md §5).
func RoundTrip(t Transport, port int, req []byte, timeout time.Duration) ([]byte, error) {
	unlock, err := t.Lock(port)
	if err != nil {
		return nil, err
	}
	defer unlock()

	frame := make([]byte, mbrtu.MaxFrameBytes)
	copy(frame, req)

	if _, err := t.Write(port, frame); err != nil {
		return nil, err
	}

	resp := make([]byte, mbrtu.MaxFrameBytes)
	n, err := t.Read(port, resp, timeout)
	if err != nil {
		return nil, err
	}
	return resp[:n], nil
}
