// Package values holds the type detection and coercion helpers shared by the
// schema, control and form packages.
package values

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// JSON type names.
const (
	TypeNull    = "null"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeArray   = "array"
	TypeObject  = "object"
)

// TypeOf reports the JSON type of v. Whole numbers report integer.
func TypeOf(v any) string {
	switch typed := v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case string:
		return TypeString
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32:
		return numberType(float64(typed))
	case float64:
		return numberType(typed)
	case json.Number:
		if _, err := typed.Int64(); err == nil {
			return TypeInteger
		}
		return TypeNumber
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map, reflect.Struct:
		return TypeObject
	}
	return ""
}

func numberType(f float64) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		return TypeInteger
	}
	return TypeNumber
}

// IsPrimitive reports whether v is a scalar JSON value.
func IsPrimitive(v any) bool {
	switch TypeOf(v) {
	case TypeNull, TypeBoolean, TypeInteger, TypeNumber, TypeString:
		return true
	}
	return false
}

// HasValue reports whether v is neither nil nor an empty string.
func HasValue(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// IsEmpty reports whether v carries no value: nil, "", or an empty container.
func IsEmpty(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	}
	return false
}

// IsNumber reports whether v is a number. Unless strict, numeric strings
// count too.
func IsNumber(v any, strict bool) bool {
	switch TypeOf(v) {
	case TypeInteger, TypeNumber:
		return true
	case TypeString:
		if strict {
			return false
		}
		_, err := strconv.ParseFloat(strings.TrimSpace(v.(string)), 64)
		return err == nil
	}
	return false
}

// IsInteger reports whether v is a whole number. Unless strict, integer
// strings count too.
func IsInteger(v any, strict bool) bool {
	switch TypeOf(v) {
	case TypeInteger:
		return true
	case TypeString:
		if strict {
			return false
		}
		_, err := strconv.ParseInt(strings.TrimSpace(v.(string)), 10, 64)
		return err == nil
	}
	return false
}

// BoolMode selects which spellings IsBoolean accepts.
type BoolMode int

const (
	// BoolAny accepts any boolean spelling.
	BoolAny BoolMode = iota
	// BoolStrict accepts only Go booleans.
	BoolStrict
	// BoolTrue accepts only spellings of true.
	BoolTrue
	// BoolFalse accepts only spellings of false.
	BoolFalse
)

// IsBoolean reports whether v spells a boolean. true, 1, "true" and "1" are
// true; false, 0, "false" and "0" are false.
func IsBoolean(v any, mode BoolMode) bool {
	if mode == BoolStrict {
		_, ok := v.(bool)
		return ok
	}
	isTrue := v == true || equalsNumber(v, 1) || v == "true" || v == "1"
	isFalse := v == false || equalsNumber(v, 0) || v == "false" || v == "0"
	switch mode {
	case BoolTrue:
		return isTrue
	case BoolFalse:
		return isFalse
	}
	return isTrue || isFalse
}

func equalsNumber(v any, n float64) bool {
	f, ok := ToFloat(v)
	if !ok {
		return false
	}
	_, isString := v.(string)
	return !isString && f == n
}

// InArray reports whether item equals any element of list.
func InArray(item any, list []any) bool {
	for _, candidate := range list {
		if Equal(item, candidate) {
			return true
		}
	}
	return false
}

// Equal compares JSON values, treating numeric types by value.
func Equal(a, b any) bool {
	if fa, ok := ToFloat(a); ok && IsNumber(a, true) {
		if fb, ok := ToFloat(b); ok && IsNumber(b, true) {
			return fa == fb
		}
		return false
	}
	switch ta := a.(type) {
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, v := range ta {
			other, ok := tb[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// ToFloat converts numeric values and numeric strings.
func ToFloat(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	}
	return 0, false
}

// ToInt converts whole numbers and integer strings.
func ToInt(v any) (int, bool) {
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ToString renders primitives as strings.
func ToString(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		return typed, true
	case bool:
		return strconv.FormatBool(typed), true
	case time.Time:
		return typed.Format("2006-01-02"), true
	case json.Number:
		return typed.String(), true
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// Clone deep copies maps and slices of a decoded JSON value.
func Clone(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = Clone(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	}
	return v
}
