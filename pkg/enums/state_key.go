package enums

import "fmt"

// StateKey names a piece of shared router state kept in Redis.
type StateKey string

const (
	StateKeyDefaultProcessorStatus StateKey = "default_payment_processor_status"
)

var validStateKeys = []StateKey{
	StateKeyDefaultProcessorStatus,
}

// String implements fmt.Stringer.
func (k StateKey) String() string {
	return string(k)
}

// IsValid reports whether the value is a known StateKey.
func (k StateKey) IsValid() bool {
	for _, candidate := range validStateKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseStateKey converts raw input into a StateKey.
func ParseStateKey(value string) (StateKey, error) {
	for _, candidate := range validStateKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid state key %q", value)
}
