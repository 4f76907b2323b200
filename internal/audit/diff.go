package audit

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// emptyPlaceholder renders absent or nil values in diffs.
const emptyPlaceholder = "empty"

// FieldDiff renders a human-readable summary of what changed between two
// document value sets. For every field present in the new set that differs
// from the old one it emits "field: old -> new" for scalar values and
// "field updated" for container values; absent and nil values render as the
// placeholder "empty".
func FieldDiff(oldDoc, newDoc map[string]any) string {
	fields := make([]string, 0, len(newDoc))
	for field := range newDoc {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		newVal := newDoc[field]
		oldVal, hadOld := oldDoc[field]
		if hadOld && sameValue(oldVal, newVal) {
			continue
		}
		if isContainer(newVal) || isContainer(oldVal) {
			parts = append(parts, field+" updated")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", field, renderValue(oldVal), renderValue(newVal)))
	}
	return strings.Join(parts, ", ")
}

func sameValue(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if an, ok := toFloat(a); ok {
		bn, ok := toFloat(b)
		return ok && an == bn
	}
	return reflect.DeepEqual(a, b)
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any, []int64, []string:
		return true
	default:
		return false
	}
}

func renderValue(v any) string {
	if v == nil {
		return emptyPlaceholder
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return emptyPlaceholder
		}
		return s
	}
	if f, ok := toFloat(v); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) (float64, bool) {
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
	default:
		return 0, false
	}
}
