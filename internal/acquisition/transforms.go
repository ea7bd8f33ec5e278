package acquisition

import "math"

// TemperatureMilliOhmToTenthsC converts an RTD resistance reading in
// milliohms to a temperature in tenths of a degree Celsius, using r0 as the
// element's nominal 0°C resistance in milliohms (100,000 for PT100,
// 1,000,000 for PT1000). Spec.md §4.C: "T(°C) = (R_mΩ − r0) /
// (0.00385 × r0)", rounded to 0.1°C and transported as i32×10.
func TemperatureMilliOhmToTenthsC(resistanceMilliOhm uint32, r0MilliOhm float64) int32 {
	tempC := (float64(resistanceMilliOhm) - r0MilliOhm) / (0.00385 * r0MilliOhm)
	return int32(math.Round(tempC * 10))
}

const (
	pt100R0MilliOhm  = 100000.0
	pt1000R0MilliOhm = 1000000.0
)

// PT100TenthsC converts a PT100 resistance reading (milliohms) to tenths
// of a degree Celsius.
func PT100TenthsC(resistanceMilliOhm uint32) int32 {
	return TemperatureMilliOhmToTenthsC(resistanceMilliOhm, pt100R0MilliOhm)
}

// PT1000TenthsC converts a PT1000 resistance reading (milliohms) to tenths
// of a degree Celsius.
func PT1000TenthsC(resistanceMilliOhm uint32) int32 {
	return TemperatureMilliOhmToTenthsC(resistanceMilliOhm, pt1000R0MilliOhm)
}

// FlowTenthsLPM converts a 4-20mA current reading (µA) to 0-100 LPM water
// flow, transported ×10. Spec.md §4.C: "flow = max(0, (I_µA − 4000)/1000) ×
// 6.25".
func FlowTenthsLPM(currentMicroAmp int32) int32 {
	flow := math.Max(0, float64(currentMicroAmp-4000)/1000) * 6.25
	return int32(math.Round(flow * 10))
}

// PressureHundredthsBar converts a 4-20mA current reading (µA) to 0-10 bar
// pressure, transported ×100. Spec.md §4.C: "pressure = max(0, (I_µA −
// 4000)/1000) × 0.625".
func PressureHundredthsBar(currentMicroAmp int32) int32 {
	pressure := math.Max(0, float64(currentMicroAmp-4000)/1000) * 0.625
	return int32(math.Round(pressure * 100))
}

// CapturePWMPeriodToRPM converts a capture-PWM period in microseconds to
// RPM. Spec.md §4.C: "rpm = (1/(period×10⁻⁶)/2) × 60" — one revolution
// corresponds to two edges of the captured signal.
func CapturePWMPeriodToRPM(periodMicroSeconds uint32) float64 {
	if periodMicroSeconds == 0 {
		return 0
	}
	periodSeconds := float64(periodMicroSeconds) / 1e6
	return (1 / periodSeconds / 2) * 60
}
