package instance

import "os"

// GetID returns the instance identifier used to namespace consumer names.
// PAYROUTER_INSTANCE_ID wins over the container-provided HOSTNAME.
func GetID() string {
	if id := os.Getenv("PAYROUTER_INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("HOSTNAME"); id != "" {
		return id
	}
	return "worker-0"
}
