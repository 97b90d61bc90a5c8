// Package rowmap reads loosely-typed rows returned by external reporting
// views, where the same datum may appear under several candidate column
// names depending on the HIS vendor and view version.
package rowmap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one external result row keyed by column name.
type Row map[string]interface{}

// FirstValue returns the first non-nil value among the candidate keys.
func FirstValue(row Row, candidates ...string) interface{} {
	for _, key := range candidates {
		if v, ok := row[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Clean trims a string value, mapping "" and the "-" placeholder to nil.
// Non-string values pass through.
func Clean(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "-" {
		return nil
	}
	return trimmed
}

// String renders a cleaned value as a trimmed string, "" when absent.
// Integral floats lose their trailing ".0" so HIS numeric codes compare
// equal to their dictionary form.
func String(value interface{}) string {
	value = Clean(value)
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case time.Time:
		return v.Format(time.RFC3339)
	case decimal.Decimal:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// Decimal parses a cleaned value as an exact decimal; ok is false when
// the value is absent or unparseable.
func Decimal(value interface{}) (decimal.Decimal, bool) {
	value = Clean(value)
	if value == nil {
		return decimal.Decimal{}, false
	}
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case []byte:
		d, err := decimal.NewFromString(strings.TrimSpace(string(v)))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// Time extracts a timestamp value; ok is false when absent or not a
// time. External views return DATETIME columns as time.Time.
func Time(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
