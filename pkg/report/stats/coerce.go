package stats

import (
	"strconv"
	"strings"
)

// Coercion classifies the outcome of turning a raw dataset value into a
// float64. Empty and Invalid values are silently omitted from the loaded
// indicator maps, since sparse data is expected rather than an error, but the
// outcome is typed so callers and tests can see exactly what was dropped.
type Coercion int

const (
	// CoercionOK means the raw value produced a usable float64.
	CoercionOK Coercion = iota
	// CoercionEmpty means the raw value was nil or an empty string.
	CoercionEmpty
	// CoercionInvalid means the raw value was present but not numeric.
	CoercionInvalid
)

// String returns a short label for logging.
func (c Coercion) String() string {
	switch c {
	case CoercionOK:
		return "ok"
	case CoercionEmpty:
		return "empty"
	case CoercionInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Coerce converts a raw dataset value to float64 and reports the outcome.
func Coerce(raw any) (float64, Coercion) {
	switch v := raw.(type) {
	case nil:
		return 0, CoercionEmpty
	case float64:
		return v, CoercionOK
	case float32:
		return float64(v), CoercionOK
	case int:
		return float64(v), CoercionOK
	case int32:
		return float64(v), CoercionOK
	case int64:
		return float64(v), CoercionOK
	case uint:
		return float64(v), CoercionOK
	case uint64:
		return float64(v), CoercionOK
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, CoercionEmpty
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, CoercionInvalid
		}
		return f, CoercionOK
	default:
		return 0, CoercionInvalid
	}
}
