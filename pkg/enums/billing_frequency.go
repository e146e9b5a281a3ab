package enums

import "fmt"

// BillingFrequency defines the cadence for a subscription plan.
type BillingFrequency string

const (
	BillingFrequencyMonthly BillingFrequency = "monthly"
	BillingFrequencyYearly  BillingFrequency = "yearly"
)

var validBillingFrequencies = []BillingFrequency{
	BillingFrequencyMonthly,
	BillingFrequencyYearly,
}

// String implements fmt.Stringer.
func (b BillingFrequency) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingFrequency.
func (b BillingFrequency) IsValid() bool {
	for _, candidate := range validBillingFrequencies {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingFrequency converts raw input into a BillingFrequency.
func ParseBillingFrequency(value string) (BillingFrequency, error) {
	for _, candidate := range validBillingFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing frequency %q", value)
}
