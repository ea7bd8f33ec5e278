// Package lifecycle implements the post-action coordinator (component M):
// reset-after-response and delayed network-config application, both run as
// detached workers never on the request goroutine (design/043_CDU_Gateway_Lifecycle_Coordinator.md §4.M, §5).
package lifecycle

import (
	"log/slog"
	"time"

	"github.com/dexatek/cdu-gateway/internal/netcfg"
)

// Coordinator owns the platform reset primitive, the network applier, and
// the firmware-update trigger a Manager.Reset action, an EthernetInterfaces
// PATCH, or a MultipartUpload ultimately invokes.
type Coordinator struct {
	reset          func()
	applier        netcfg.Applier
	firmwareUpdate func()
	ethernetDelay  time.Duration
}

// New builds a Coordinator. reset is the platform-specific restart
// primitive (design/030_CDU_Gateway_Overview.md §1 treats it as an external collaborator); applier is
// the network-config primitive (internal/netcfg); firmwareUpdate is the
// external system_firmware_update() trigger design/040_CDU_Gateway_Redfish_API.md §4.K/§4.M name.
func New(reset func(), applier netcfg.Applier, firmwareUpdate func(), ethernetDelay time.Duration) *Coordinator {
	return &Coordinator{reset: reset, applier: applier, firmwareUpdate: firmwareUpdate, ethernetDelay: ethernetDelay}
}

// responseFlushGrace is how long ScheduleForceRestart waits before invoking
// the platform reset primitive, giving the HTTP front end time to flush the
// 200 response to the client (design/043_CDU_Gateway_Lifecycle_Coordinator.md §4.M: "After the response has been
// fully written... the front-end invokes the post-action").
const responseFlushGrace = 250 * time.Millisecond

// ScheduleForceRestart runs the reset primitive on a detached goroutine
// after a short grace period, rather than on the handler's goroutine —
// satisfying design/043_CDU_Gateway_Lifecycle_Coordinator.md §4.M without plumbing a response-flushed signal back
// from the HTTP front end.
func (c *Coordinator) ScheduleForceRestart() {
	go func() {
		time.Sleep(responseFlushGrace)
		slog.Warn("lifecycle: executing ForceRestart post-action")
		c.reset()
	}()
}

// ScheduleEthernetApply implements the delayed-apply requirement of
// design/040_CDU_Gateway_Redfish_API.md §4.I/§4.M (3-second default delay): a detached worker that always
// runs once scheduled. Per design/049_CDU_Gateway_Design_Notes.md §9's open question ("the existing
// behavior is 'always runs because detached'"), this implementation
// preserves that behavior rather than introducing cancellation — a
// shutdown mid-delay lets the apply proceed if the process survives long
// enough, and is lost otherwise, matching the original firmware exactly.
func (c *Coordinator) ScheduleEthernetApply(cfg netcfg.Config) {
	delay := c.ethernetDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	go func() {
		time.Sleep(delay)
		if err := c.applier.Apply(cfg); err != nil {
			slog.Error("lifecycle: delayed ethernet apply failed", "error", err)
		}
	}()
}

// ScheduleFirmwareUpdate runs the firmware-update trigger on a detached
// goroutine after the same response-flush grace period as
// ScheduleForceRestart: the client sees the 200 for the upload before the
// device starts applying the new image (design/049_CDU_Gateway_Design_Notes.md §9: "Ensure your front-end
// flushes before invoking post-actions so the client sees the success
// before the device restarts itself").
func (c *Coordinator) ScheduleFirmwareUpdate() {
	go func() {
		time.Sleep(responseFlushGrace)
		slog.Warn("lifecycle: executing firmware update post-action")
		c.firmwareUpdate()
	}()
}
