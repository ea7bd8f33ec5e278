package controllogic

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/hid"
	"github.com/dexatek/cdu-gateway/internal/mbrtu"
	"github.com/dexatek/cdu-gateway/internal/regmap"
)

func respondWrite() func(req []byte) []byte {
	return func(req []byte) []byte { return req }
}

func respondRead(values []uint16) func(req []byte) []byte {
	return func(req []byte) []byte {
		body := []byte{mbrtu.OnBoardDeviceID, mbrtu.FuncReadHoldingRegisters, byte(len(values) * 2)}
		for _, v := range values {
			body = append(body, byte(v>>8), byte(v))
		}
		return mbrtu.AppendCRC(body)
	}
}

func TestRegistryIndexing(t *testing.T) {
	r := NewRegistry(fakeInstance{name: "one"}, fakeInstance{name: "two"})
	if r.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", r.Count())
	}
	if r.Name(1) != "one" || r.Name(2) != "two" {
		t.Fatalf("names = %q, %q", r.Name(1), r.Name(2))
	}
	if _, err := r.ReadJSON(0); err == nil {
		t.Fatal("expected out-of-range error for index 0")
	}
	if _, err := r.ReadJSON(3); err == nil {
		t.Fatal("expected out-of-range error for index 3")
	}
}

type fakeInstance struct{ name string }

func (f fakeInstance) Name() string                        { return f.name }
func (f fakeInstance) ReadToJSON() (json.RawMessage, error) { return json.RawMessage(`{}`), nil }
func (f fakeInstance) WriteFromJSON(data []byte) error      { return nil }

func TestPumpSpeedControlAppliesDuty(t *testing.T) {
	regs := regmap.New(regmap.RTDBase, regmap.MapCount-(regmap.RTDBase-regmap.HIDBase))
	if err := regs.Set(regmap.RTDTemperatureAddr(0, 0), regmap.I32(300)); err != nil {
		t.Fatalf("Set temperature: %v", err)
	}

	f := hid.NewFake(map[int]uint16{0: boards.PIDIOBoard})
	f.Handle(0, respondWrite())
	cmd := boards.New(f, 50*time.Millisecond)

	p, err := NewPumpSpeedControl(regs, cmd, filepath.Join(t.TempDir(), "pump_speed_state"))
	if err != nil {
		t.Fatalf("NewPumpSpeedControl: %v", err)
	}
	if err := p.WriteFromJSON([]byte(`{"temp_port":0,"temp_channel":0,"pwm_port":0,"pwm_channel":1,"setpoint_tenths_c":250,"gain_tenths_per_duty":5,"duty_min":20,"duty_max":80}`)); err != nil {
		t.Fatalf("WriteFromJSON: %v", err)
	}

	out, err := p.ReadToJSON()
	if err != nil {
		t.Fatalf("ReadToJSON: %v", err)
	}
	var got struct {
		TempTenthsC     int32
		SetpointTenthsC int32
		DutyPercent     uint16
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// (300-250)/5 = 10, duty = 20+10 = 30
	if got.DutyPercent != 30 {
		t.Fatalf("DutyPercent = %d, want 30", got.DutyPercent)
	}
	writes := f.Writes(0)
	if len(writes) != 1 {
		t.Fatalf("expected 1 PWM write, got %d", len(writes))
	}
}

func TestLeakInterlockTripsShutoff(t *testing.T) {
	regs := regmap.New(regmap.HIDBase, regmap.MapCount)
	if err := regs.Set(regmap.GPIOInputAddr(0, 2), regmap.U16(1)); err != nil {
		t.Fatalf("Set gpio input: %v", err)
	}

	f := hid.NewFake(map[int]uint16{0: boards.PIDIOBoard})
	f.Handle(0, respondWrite())
	cmd := boards.New(f, 50*time.Millisecond)

	l, err := NewLeakInterlock(regs, cmd, filepath.Join(t.TempDir(), "leak_interlock_state"))
	if err != nil {
		t.Fatalf("NewLeakInterlock: %v", err)
	}
	if err := l.WriteFromJSON([]byte(`{"sense_port":0,"sense_channel":2,"shutoff_port":0,"shutoff_channels":[5,6]}`)); err != nil {
		t.Fatalf("WriteFromJSON: %v", err)
	}

	out, err := l.ReadToJSON()
	if err != nil {
		t.Fatalf("ReadToJSON: %v", err)
	}
	var got struct{ Tripped bool }
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Tripped {
		t.Fatal("expected Tripped = true")
	}
	if len(f.Writes(0)) != 2 {
		t.Fatalf("expected 2 shutoff writes, got %d", len(f.Writes(0)))
	}
}

func TestLeakInterlockNotTripped(t *testing.T) {
	regs := regmap.New(regmap.HIDBase, regmap.MapCount)
	f := hid.NewFake(map[int]uint16{0: boards.PIDIOBoard})
	cmd := boards.New(f, 50*time.Millisecond)

	l, err := NewLeakInterlock(regs, cmd, filepath.Join(t.TempDir(), "leak_interlock_state"))
	if err != nil {
		t.Fatalf("NewLeakInterlock: %v", err)
	}
	out, err := l.ReadToJSON()
	if err != nil {
		t.Fatalf("ReadToJSON: %v", err)
	}
	var got struct{ Tripped bool }
	json.Unmarshal(out, &got)
	if got.Tripped {
		t.Fatal("expected Tripped = false when sense bit is 0")
	}
	if len(f.Writes(0)) != 0 {
		t.Fatal("no shutoff writes expected when not tripped")
	}
}

func TestFlowAlarmTripsOnLowFlow(t *testing.T) {
	regs := regmap.New(regmap.RTCBase-10, 20)
	if err := regs.Set(regmap.RTCBase-5, regmap.U16(15)); err != nil {
		t.Fatalf("Set flow: %v", err)
	}

	a, err := NewFlowAlarm(regs, filepath.Join(t.TempDir(), "flow_alarm_state"))
	if err != nil {
		t.Fatalf("NewFlowAlarm: %v", err)
	}
	if err := a.WriteFromJSON([]byte(`{"flow_update_address":` + itoa(regmap.RTCBase-5) + `,"threshold_tenths_lpm":20}`)); err != nil {
		t.Fatalf("WriteFromJSON: %v", err)
	}

	out, err := a.ReadToJSON()
	if err != nil {
		t.Fatalf("ReadToJSON: %v", err)
	}
	var got struct {
		Alarm   bool
		FlowLPM float64
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Alarm {
		t.Fatal("expected Alarm = true (1.5 LPM < 2.0 LPM threshold)")
	}
	if got.FlowLPM != 1.5 {
		t.Fatalf("FlowLPM = %v, want 1.5", got.FlowLPM)
	}
}

func itoa(v uint32) string {
	b, _ := json.Marshal(v)
	return string(b)
}
