package callback

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// stripMarker removes exactly one leading occurrence of marker
func stripMarker(s, marker string) string {
	if marker == "" {
		return s
	}
	return strings.TrimPrefix(s, marker)
}

// coerceScalarString renders a scalar JSON value as a string. Objects,
// arrays and null are rejected.
func coerceScalarString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// coerceItem renders one element of an items array. Non-scalar elements are
// kept in their JSON encoding.
func coerceItem(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := coerceScalarString(value); ok {
		return s
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// coerceBool accepts a real boolean or the literal "true" after marker
// stripping; everything else is false
func coerceBool(value interface{}, marker string) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return stripMarker(v, marker) == "true"
	default:
		return false
	}
}

// coerceCount converts a JSON number or numeric string into a non-negative
// whole count
func coerceCount(value interface{}, marker string) (int, bool) {
	var f float64
	switch v := value.(type) {
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case float64:
		f = v
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(stripMarker(v, marker)), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}

	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// splitItems splits a comma-joined string, trimming each piece and dropping
// empty ones
func splitItems(s string) []string {
	items := []string{}
	for _, piece := range strings.Split(s, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			items = append(items, piece)
		}
	}
	return items
}
