package gateway

import "math"

// RoundToHalf rounds a temperature to the nearest 0.5 degree step, rounding
// ties to the even step so repeated round trips through the gateway do not
// drift upward. 1.25 rounds to 1.0 and 1.75 rounds to 2.0.
func RoundToHalf(value float64) float64 {
	return math.RoundToEven(value*2) / 2
}

// batteryPercentForVoltage converts a cell voltage to a charge percentage
// using the discharge curve for the given model. Voltages below the curve's
// lowest step report 0%.
func batteryPercentForVoltage(model string, voltage float64) int {
	for _, step := range batteryVoltageCurve(model) {
		if voltage >= step.Volts {
			return step.Percent
		}
	}
	return 0
}

// batteryDigitPercent maps the status digit carried at a fixed offset of the
// thermostat status string to a percentage. The second return is false for
// digits outside the documented 0-5 range.
func batteryDigitPercent(digit int) (int, bool) {
	pct, ok := batteryLevelPercent[digit]
	return pct, ok
}
