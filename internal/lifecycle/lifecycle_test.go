package lifecycle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/dexatek/cdu-gateway/internal/netcfg"
)

type recordingApplier struct {
	applied atomic.Bool
	cfg     atomic.Value
}

func (a *recordingApplier) Apply(cfg netcfg.Config) error {
	a.cfg.Store(cfg)
	a.applied.Store(true)
	return nil
}

func TestScheduleForceRestartRunsDetached(t *testing.T) {
	var resetCalled atomic.Bool
	c := New(func() { resetCalled.Store(true) }, &recordingApplier{}, func() {}, time.Second)

	c.ScheduleForceRestart()
	if resetCalled.Load() {
		t.Fatal("reset primitive must not run synchronously")
	}

	waitFor(t, func() bool { return resetCalled.Load() })
}

func TestScheduleFirmwareUpdateRunsDetached(t *testing.T) {
	var updateCalled atomic.Bool
	c := New(func() {}, &recordingApplier{}, func() { updateCalled.Store(true) }, time.Second)

	c.ScheduleFirmwareUpdate()
	if updateCalled.Load() {
		t.Fatal("firmware update primitive must not run synchronously")
	}

	waitFor(t, func() bool { return updateCalled.Load() })
}

func TestScheduleEthernetApplyDefaultsDelay(t *testing.T) {
	applier := &recordingApplier{}
	c := New(func() {}, applier, func() {}, 0)

	cfg := netcfg.Config{Interface: "eth0", Address: "10.0.0.5", AddressOrigin: "Static"}
	start := time.Now()
	c.ScheduleEthernetApply(cfg)

	if applier.applied.Load() {
		t.Fatal("ethernet apply must not run synchronously")
	}

	waitFor(t, func() bool { return applier.applied.Load() })
	if time.Since(start) < 2*time.Second {
		t.Error("ScheduleEthernetApply should wait at least its default 3s delay before applying")
	}
	got := applier.cfg.Load().(netcfg.Config)
	if got != cfg {
		t.Errorf("applied config = %+v, want %+v", got, cfg)
	}
}

func waitFor(t *testing.T, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if done() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for detached worker to run")
}
