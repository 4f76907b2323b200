package docstore

import (
	"encoding/json"
	"reflect"
)

// ValueEquals matches the way document backends index values: numbers match
// numerically regardless of width, strings match strings, and a number never
// matches its string rendering. Store implementations share it so QueryEquals
// behaves identically across backends.
func ValueEquals(stored, queried any) bool {
	if sn, ok := numeric(stored); ok {
		qn, ok := numeric(queried)
		return ok && sn == qn
	}
	if ss, ok := stored.(string); ok {
		qs, ok := queried.(string)
		return ok && ss == qs
	}
	return stored != nil && reflect.DeepEqual(stored, queried)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
