package controllogic

import (
	"encoding/json"
	"fmt"

	"github.com/dexatek/cdu-gateway/internal/boards"
	"github.com/dexatek/cdu-gateway/internal/regmap"
	"github.com/dexatek/cdu-gateway/internal/sensorconfig"
)

// PumpSpeedState is PumpSpeedControl's persisted configuration. Grounded on
// original_source/kenmec/.../control_logic_update.c's temperature readout
// feeding a PWM duty target.
type PumpSpeedState struct {
	TempPort           int   `json:"temp_port"`
	TempChannel        int   `json:"temp_channel"`
	PWMPort            int   `json:"pwm_port"`
	PWMChannel         int   `json:"pwm_channel"`
	SetpointTenthsC    int32 `json:"setpoint_tenths_c"`
	GainTenthsPerDuty  int32 `json:"gain_tenths_per_duty"`
	DutyMin            uint16 `json:"duty_min"`
	DutyMax            uint16 `json:"duty_max"`
}

// PumpSpeedControl reads a transformed RTD temperature from the register
// map, computes a duty target proportional to how far it sits above its
// configured setpoint, and pushes the result to a PWM output channel.
type PumpSpeedControl struct {
	regs  *regmap.Map
	cmd   *boards.Commander
	state *sensorconfig.ObjectStore[PumpSpeedState]
}

// NewPumpSpeedControl builds a PumpSpeedControl backed by a JSON state file
// at statePath.
func NewPumpSpeedControl(regs *regmap.Map, cmd *boards.Commander, statePath string) (*PumpSpeedControl, error) {
	st, err := sensorconfig.NewObjectStore[PumpSpeedState](statePath)
	if err != nil {
		return nil, err
	}
	return &PumpSpeedControl{regs: regs, cmd: cmd, state: st}, nil
}

func (p *PumpSpeedControl) Name() string { return "PumpSpeedControl" }

func (p *PumpSpeedControl) currentDuty(st PumpSpeedState, tempTenthsC int32) uint16 {
	if st.GainTenthsPerDuty <= 0 {
		return st.DutyMin
	}
	delta := tempTenthsC - st.SetpointTenthsC
	duty := int32(st.DutyMin) + delta/st.GainTenthsPerDuty
	if duty < int32(st.DutyMin) {
		duty = int32(st.DutyMin)
	}
	if duty > int32(st.DutyMax) {
		duty = int32(st.DutyMax)
	}
	return uint16(duty)
}

// ReadToJSON reads the current temperature, computes and applies the duty
// target, and reports both.
func (p *PumpSpeedControl) ReadToJSON() (json.RawMessage, error) {
	st := p.state.Get()
	v, err := p.regs.Get(regmap.RTDTemperatureAddr(st.TempPort, st.TempChannel), regmap.KindI32)
	if err != nil {
		return nil, fmt.Errorf("controllogic: PumpSpeedControl read temperature: %w", err)
	}
	tempTenthsC, _ := v.AsI32()
	duty := p.currentDuty(st, tempTenthsC)
	if err := p.cmd.PWMOutputSetDuty(st.PWMPort, st.PWMChannel, duty); err != nil {
		return nil, fmt.Errorf("controllogic: PumpSpeedControl set duty: %w", err)
	}
	return json.Marshal(struct {
		TempTenthsC     int32  `json:"TempTenthsC"`
		SetpointTenthsC int32  `json:"SetpointTenthsC"`
		DutyPercent     uint16 `json:"DutyPercent"`
	}{tempTenthsC, st.SetpointTenthsC, duty})
}

// WriteFromJSON accepts a partial update to the control setpoint/gain/duty
// bounds; unset fields keep their current value.
func (p *PumpSpeedControl) WriteFromJSON(data []byte) error {
	st := p.state.Get()
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("controllogic: PumpSpeedControl: %w", err)
	}
	return p.state.Set(st)
}
