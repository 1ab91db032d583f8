package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Truthy reports whether a loosely typed flag is set. Only boolean true,
// the string "true" and the number 1 count; everything else is false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	case float64:
		return x == 1
	case float32:
		return x == 1
	case int:
		return x == 1
	case int32:
		return x == 1
	case int64:
		return x == 1
	case json.Number:
		n, err := x.Int64()
		return err == nil && n == 1
	default:
		return false
	}
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func intValue(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case float32:
		return int(x), true
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}

func intPtr(v any) *int {
	n, ok := intValue(v)
	if !ok {
		return nil
	}
	return &n
}

// zone-less layouts are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
}

// ParseInstant parses a timestamp as stored in a record.
func ParseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func timePtr(v any, loc *time.Location) *time.Time {
	t, ok := ParseInstant(stringValue(v), loc)
	if !ok {
		return nil
	}
	return &t
}

// FormatInstant is the representation written back to records.
func FormatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
