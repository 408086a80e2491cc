package provider

import "strings"

// Frequency is the cadence at which a provider's bills recur.
type Frequency string

const (
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyBiMonthly Frequency = "BI_MONTHLY" // Every second month, anchored to the creation month
	FrequencyYearly    Frequency = "YEARLY"     // Once a year, in the creation month
)

var frequencies = []Frequency{FrequencyMonthly, FrequencyBiMonthly, FrequencyYearly}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyBiMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// ParseFrequency accepts the enum names case-insensitively.
func ParseFrequency(s string) (Frequency, bool) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	return f, f.IsValid()
}

// Frequencies lists the accepted values in declaration order.
func Frequencies() []Frequency {
	out := make([]Frequency, len(frequencies))
	copy(out, frequencies)
	return out
}
