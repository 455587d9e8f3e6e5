package values

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ToNative converts v to the first compatible type in types without guessing:
// "3" becomes 3 for integer, 4 becomes "4" for string, "true" becomes true for
// boolean. Values that match nothing yield nil. Integers come back as int64
// and numbers as float64.
func ToNative(v any, types ...string) any {
	if v == nil {
		return nil
	}
	if slices.Contains(types, TypeInteger) {
		if IsInteger(v, false) {
			if n, ok := toInt64(v); ok {
				return n
			}
		}
	}
	if slices.Contains(types, TypeNumber) {
		if IsNumber(v, false) {
			if f, ok := ToFloat(v); ok {
				return f
			}
		}
	}
	if slices.Contains(types, TypeString) {
		switch typed := v.(type) {
		case string:
			return typed
		case time.Time:
			return typed.Format("2006-01-02")
		}
		if IsNumber(v, true) {
			s, _ := ToString(v)
			return s
		}
	}
	if t, ok := v.(time.Time); ok && (slices.Contains(types, TypeInteger) || slices.Contains(types, TypeNumber)) {
		return t.UnixMilli()
	}
	if slices.Contains(types, TypeBoolean) {
		if IsBoolean(v, BoolTrue) {
			return true
		}
		if IsBoolean(v, BoolFalse) {
			return false
		}
	}
	return nil
}

// ToSchemaType forces v into one of types, repairing values ToNative would
// reject: "" and nil become 0 for numbers, "12abc" becomes 12, a non-boolean
// becomes its truthiness.
func ToSchemaType(v any, types ...string) any {
	has := func(t string) bool { return slices.Contains(types, t) }
	if has(TypeNull) && !HasValue(v) {
		return nil
	}
	if has(TypeBoolean) && IsBoolean(v, BoolStrict) {
		return v
	}
	if has(TypeInteger) {
		if n := ToNative(v, TypeInteger); n != nil {
			return n
		}
	}
	if has(TypeNumber) {
		if n := ToNative(v, TypeNumber); n != nil {
			return n
		}
	}
	if has(TypeString) {
		if _, ok := v.(string); ok || IsNumber(v, true) {
			return ToNative(v, TypeString)
		}
	}
	if has(TypeBoolean) && IsBoolean(v, BoolAny) {
		return ToNative(v, TypeBoolean)
	}
	if has(TypeString) {
		if v == nil {
			return ""
		}
		if s := ToNative(v, TypeString); s != nil {
			return s
		}
	}
	if has(TypeNumber) || has(TypeInteger) {
		switch v {
		case true:
			return int64(1)
		case false, nil, "":
			return int64(0)
		}
	}
	if s, ok := v.(string); ok {
		if has(TypeNumber) {
			if f, ok := leadingFloat(s); ok && f != 0 {
				return f
			}
		}
		if has(TypeInteger) {
			if f, ok := leadingFloat(s); ok && math.Trunc(f) != 0 {
				return int64(math.Trunc(f))
			}
		}
	}
	if has(TypeBoolean) {
		return truthy(v)
	}
	if (has(TypeNumber) || has(TypeInteger)) && !has(TypeNull) {
		return int64(0)
	}
	return v
}

func toInt64(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// leadingFloat parses the longest numeric prefix of s.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDot, seenDigit := false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		case (c == '-' || c == '+') && end == 0:
		default:
			break scan
		}
		end++
	}
	if !seenDigit {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	return f, err == nil
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	}
	if f, ok := ToFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}
