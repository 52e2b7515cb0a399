package validators

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
)

// ParseQueryTime reads an optional RFC3339 timestamp. A missing or empty key yields nil.
func ParseQueryTime(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be an RFC3339 timestamp").WithDetails(map[string]any{"field": key})
	}
	utc := value.UTC()
	return &utc, nil
}
