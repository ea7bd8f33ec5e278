package hid

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	gohid "github.com/sstallion/go-hid"
)

// PortBinding describes one logical port's expected USB identity, supplied
// by the caller at startup (design/032_CDU_Gateway_HID_Transport.md §4.A: ports are bound by VID match, in
// enumeration order, up to regmap.MaxHIDPorts).
type PortBinding struct {
	Port      int
	VendorID  uint16
	ProductID uint16
}

// DeviceTransport is the production Transport, backed by the host's hidapi
// bindings. Each bound port owns a dedicated *gohid.Device and a mutex that
// is held for the full duration of one request/response round trip, since
// the wire protocol has no request IDs to disambiguate interleaved traffic.
type DeviceTransport struct {
	mu      sync.Mutex // guards ports map structure, not per-port I/O
	ports   map[int]*boundDevice
	order   []int
}

type boundDevice struct {
	mu     sync.Mutex
	dev    *gohid.Device
	pid    uint16
}

// Open enumerates attached HID devices and binds each matching binding to
// its logical port. A binding with no matching device is skipped and
// logged; callers may retry Open later if boards attach after startup.
func Open(bindings []PortBinding) (*DeviceTransport, error) {
	if err := gohid.Init(); err != nil {
		return nil, fmt.Errorf("hid: init: %w", err)
	}

	t := &DeviceTransport{ports: make(map[int]*boundDevice)}

	for _, b := range bindings {
		dev, err := gohid.OpenFirst(b.VendorID, b.ProductID)
		if err != nil {
			slog.Warn("hid board not present", "port", b.Port, "vid", b.VendorID, "pid", b.ProductID, "error", err)
			continue
		}
		t.ports[b.Port] = &boundDevice{dev: dev, pid: b.ProductID}
		t.order = append(t.order, b.Port)
		slog.Info("hid board bound", "port", b.Port, "vid", b.VendorID, "pid", b.ProductID)
	}

	return t, nil
}

func (t *DeviceTransport) get(port int) (*boundDevice, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bd, ok := t.ports[port]
	if !ok {
		return nil, ErrNotOpen
	}
	return bd, nil
}

// Write sends one HID output report to port. Callers must hold port's lock
// (see Lock) for the duration of the write and its matching read.
func (t *DeviceTransport) Write(port int, buf []byte) (int, error) {
	bd, err := t.get(port)
	if err != nil {
		return 0, err
	}
	n, err := bd.dev.Write(buf)
	if err != nil {
		return n, &ErrIO{Port: port, Err: err}
	}
	return n, nil
}

// Read blocks for up to timeout waiting for one HID input report from port.
func (t *DeviceTransport) Read(port int, buf []byte, timeout time.Duration) (int, error) {
	bd, err := t.get(port)
	if err != nil {
		return 0, err
	}
	n, err := bd.dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return n, &ErrIO{Port: port, Err: err}
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// Lock acquires port's round-trip mutex, held for the full duration of one
// write+read request (design/045_CDU_Gateway_Concurrency_Model.md §5: "a request holds the mutex for its full
// round-trip up to timeout_ms").
func (t *DeviceTransport) Lock(port int) (func(), error) {
	bd, err := t.get(port)
	if err != nil {
		return nil, err
	}
	bd.mu.Lock()
	return bd.mu.Unlock, nil
}

// PortPID reports the product ID bound to port.
func (t *DeviceTransport) PortPID(port int) (uint16, error) {
	bd, err := t.get(port)
	if err != nil {
		return 0, err
	}
	return bd.pid, nil
}

// Ports returns the bound logical port numbers in binding order.
func (t *DeviceTransport) Ports() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

// Close closes every bound device and releases the hidapi context.
func (t *DeviceTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for port, bd := range t.ports {
		bd.mu.Lock()
		if err := bd.dev.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("hid: close port %d: %w", port, err)
		}
		bd.mu.Unlock()
	}
	if err := gohid.Exit(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("hid: exit: %w", err)
	}
	return firstErr
}
