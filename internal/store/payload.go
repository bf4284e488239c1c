package store

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/atinyakov/appstate/internal/models"
)

// String coerces a mutation payload to a string. nil and "" give "".
func String(payload any) (string, error) {
	switch v := payload.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case *string:
		if v == nil {
			return "", nil
		}
		return *v, nil
	default:
		return "", fmt.Errorf("%w: want string, got %T", ErrInvalidPayload, payload)
	}
}

// Int64 coerces a mutation payload to an int64. nil gives 0. Any integer
// kind is accepted while it fits; floats are accepted when integral and in
// range, since JSON numbers decode as float64.
func Int64(payload any) (int64, error) {
	switch v := payload.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return fromUint64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return fromUint64(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: want integer, got %T", ErrInvalidPayload, payload)
	}
}

func fromUint64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d overflows int64", ErrInvalidPayload, v)
	}
	return int64(v), nil
}

// fromFloat rejects fractions, NaN and values outside the int64 range.
// 2^63 is exactly representable, so the upper bound is exclusive.
func fromFloat(v float64) (int64, error) {
	if v != math.Trunc(v) || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidPayload, v)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v overflows int64", ErrInvalidPayload, v)
	}
	return int64(v), nil
}

// Record coerces a mutation payload to a free-form record. nil gives an empty
// map. The result is a deep copy, so the caller keeps no handle on it.
func Record(payload any) (map[string]any, error) {
	switch v := payload.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		if v == nil {
			return map[string]any{}, nil
		}
		return models.CloneRecord(v), nil
	default:
		return nil, fmt.Errorf("%w: want record, got %T", ErrInvalidPayload, payload)
	}
}
