// (c) Bernhard Tittelbach, 2024

package mailbox

const (
	DefaultEmptyBatteryVoltage = 3.0
	DefaultFullBatteryVoltage  = 4.2
	ADCMaxVoltage              = 3.3
	// VSys is measured through the board's divider on a 16 bit scale.
	DefaultConversionFactor = ADCMaxVoltage / 65535 * 63

	MaxBatteryPercent = 99
)

// BatteryGauge maps a raw ADC reading linearly between EmptyVoltage (0%)
// and FullVoltage (99%).
type BatteryGauge struct {
	EmptyVoltage     float64
	FullVoltage      float64
	ConversionFactor float64
}

func DefaultBatteryGauge() BatteryGauge {
	return BatteryGauge{
		EmptyVoltage:     DefaultEmptyBatteryVoltage,
		FullVoltage:      DefaultFullBatteryVoltage,
		ConversionFactor: DefaultConversionFactor,
	}
}

func (g BatteryGauge) Voltage(raw uint16) float64 {
	return float64(raw) * g.ConversionFactor
}

func (g BatteryGauge) Percentage(raw uint16) int {
	return BatteryPercentage(raw, g.ConversionFactor, g.EmptyVoltage, g.FullVoltage)
}

// BatteryPercentage never returns 100, the top is capped at MaxBatteryPercent.
func BatteryPercentage(raw uint16, conversionFactor, emptyVoltage, fullVoltage float64) int {
	return percentageOfVoltage(float64(raw)*conversionFactor, emptyVoltage, fullVoltage)
}

func percentageOfVoltage(voltage, emptyVoltage, fullVoltage float64) int {
	switch {
	case voltage <= emptyVoltage:
		return 0
	case voltage >= fullVoltage:
		return MaxBatteryPercent
	}
	percent := int((voltage - emptyVoltage) / (fullVoltage - emptyVoltage) * 100)
	return clampPercent(percent)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxBatteryPercent {
		return MaxBatteryPercent
	}
	return v
}
