package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNilValue is returned when a nil value is given to NormalizeValue.
var ErrNilValue = errors.New("nil metadata value")

// NormalizeValue converts a value to its stored text form. Booleans become
// "TRUE" or "FALSE", strings are trimmed, numbers use their shortest
// decimal form.
func NormalizeValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", ErrNilValue
	case string:
		return strings.TrimSpace(val), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case json.Number:
		return val.String(), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case fmt.Stringer:
		return strings.TrimSpace(val.String()), nil
	default:
		return "", fmt.Errorf("unsupported metadata value type %T", v)
	}
}
