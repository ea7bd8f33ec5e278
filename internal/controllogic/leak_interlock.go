package controllogic

import (
	"encoding/json"
	"fmt"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
)

// LeakInterlockState is LeakInterlock's persisted configuration: which GPIO
// input bit is the leak sensor, and which output channels shut the pump
// down when it trips.
type LeakInterlockState struct {
	SensePort        int   `json:"sense_port"`
	SenseChannel     int   `json:"sense_channel"`
	ShutoffPort      int   `json:"shutoff_port"`
	ShutoffChannels  []int `json:"shutoff_channels"`
}

// LeakInterlock reads a leak-detector GPIO input and, when asserted,
// force-writes the configured GPIO outputs low to cut pump power. Grounded
// on original_source/kenmec/.../control_hardware.c's direct digital I/O
// access pattern.
type LeakInterlock struct {
	regs  *regmap.Map
	cmd   *boards.Commander
	state *sensorconfig.ObjectStore[LeakInterlockState]
}

// NewLeakInterlock builds a LeakInterlock backed by a JSON state file at
// statePath.
func NewLeakInterlock(regs *regmap.Map, cmd *boards.Commander, statePath string) (*LeakInterlock, error) {
	st, err := sensorconfig.NewObjectStore[LeakInterlockState](statePath)
	if err != nil {
		return nil, err
	}
	return &LeakInterlock{regs: regs, cmd: cmd, state: st}, nil
}

func (l *LeakInterlock) Name() string { return "LeakInterlock" }

// ReadToJSON reports whether the interlock is tripped, shutting off the
// configured outputs if so.
func (l *LeakInterlock) ReadToJSON() (json.RawMessage, error) {
	st := l.state.Get()
	v, err := l.regs.Get(regmap.GPIOInputAddr(st.SensePort, st.SenseChannel), regmap.KindU16)
	if err != nil {
		return nil, fmt.Errorf("controllogic: LeakInterlock read sense input: %w", err)
	}
	bit, _ := v.AsU16()
	tripped := bit != 0
	if tripped {
		for _, ch := range st.ShutoffChannels {
			if err := l.cmd.GPIOOutput(st.ShutoffPort, ch, 0); err != nil {
				return nil, fmt.Errorf("controllogic: LeakInterlock shutoff ch%d: %w", ch, err)
			}
		}
	}
	return json.Marshal(struct {
		Tripped bool `json:"Tripped"`
	}{tripped})
}

// WriteFromJSON reconfigures which sense input and shutoff outputs this
// interlock watches.
func (l *LeakInterlock) WriteFromJSON(data []byte) error {
	st := l.state.Get()
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("controllogic: LeakInterlock: %w", err)
	}
	return l.state.Set(st)
}
