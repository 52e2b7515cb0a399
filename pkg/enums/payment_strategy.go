package enums

import "fmt"

// PaymentStrategy records which processor handled a payment.
type PaymentStrategy string

const (
	PaymentStrategyUnset    PaymentStrategy = ""
	PaymentStrategyDefault  PaymentStrategy = "default"
	PaymentStrategyFallback PaymentStrategy = "fallback"
)

// validPaymentStrategies excludes unset: only routed payments are persisted.
var validPaymentStrategies = []PaymentStrategy{
	PaymentStrategyDefault,
	PaymentStrategyFallback,
}

// PaymentStrategies returns the persisted strategies in summary order.
func PaymentStrategies() []PaymentStrategy {
	out := make([]PaymentStrategy, len(validPaymentStrategies))
	copy(out, validPaymentStrategies)
	return out
}

// String implements fmt.Stringer.
func (s PaymentStrategy) String() string {
	if s == PaymentStrategyUnset {
		return "unset"
	}
	return string(s)
}

// IsValid reports whether the value is a routed PaymentStrategy.
func (s PaymentStrategy) IsValid() bool {
	for _, candidate := range validPaymentStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentStrategy converts raw input into a PaymentStrategy.
func ParsePaymentStrategy(value string) (PaymentStrategy, error) {
	for _, candidate := range validPaymentStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return PaymentStrategyUnset, fmt.Errorf("invalid payment strategy %q", value)
}
