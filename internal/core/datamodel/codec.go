// Package datamodel holds the workforce entities mirrored from the remote
// document store, together with the codecs that translate between the typed
// entities and the loosely typed document maps the store delivers.
//
// Documents written by historical clients carry numeric ids as int64,
// float64 or digit strings depending on the code path that produced them.
// All of that tolerance lives here: entities always carry canonical int64
// logical ids once decoded.
package datamodel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Int64Value coerces the representations a document field may carry for a
// numeric id: int64 (in-process writes), float64 (JSON round-trips), int,
// json.Number, or a digit string (legacy writes).
func Int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func int64Field(data map[string]any, key string) (int64, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, false
	}
	return Int64Value(v)
}

// optionalInt64Field distinguishes absent/nil (nil pointer) from present.
func optionalInt64Field(data map[string]any, key string) *int64 {
	if v, ok := int64Field(data, key); ok {
		return &v
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func boolField(data map[string]any, key string) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}

func timeField(data map[string]any, key, layout string) *time.Time {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return &t
}

func requireTimeField(data map[string]any, key, layout string) (time.Time, error) {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("missing %s field", key)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s field %q", key, s)
	}
	return t, nil
}

// decimalField decodes an amount that historical clients stored as a
// string, a JSON number, or an integer.
func decimalField(data map[string]any, key string) (decimal.Decimal, error) {
	switch v := data[key].(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("malformed %s field %q", key, v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("malformed %s field %q", key, v)
		}
		return d, nil
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("malformed %s field of type %T", key, v)
	}
}

// int64SliceField decodes a member-id list whose elements may use any of the
// tolerated id representations.
func int64SliceField(data map[string]any, key string) []int64 {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, el := range raw {
		if id, ok := Int64Value(el); ok {
			out = append(out, id)
		}
	}
	return out
}

// EncodeIDs renders a member-id list the way documents store it.
func EncodeIDs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// EncodeOptionalID renders an optional id reference, nil when absent.
func EncodeOptionalID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func requireID(data map[string]any, entity string) (int64, error) {
	id, ok := int64Field(data, "id")
	if !ok {
		return 0, fmt.Errorf("%s document has no usable id field", entity)
	}
	return id, nil
}
