package control

import (
	"fmt"
	"math"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/goliatone/go-jsonform/pkg/values"
)

// ValidationError is one failed constraint on a control.
type ValidationError struct {
	Keyword string `json:"keyword"`
	Params  []any  `json:"params,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Validator checks a control value. It returns nil when the value passes.
type Validator func(value any) *ValidationError

// Validators builds the validators for a constraint set, ordered by
// constraint name. Unknown names and unusable arguments are skipped.
func Validators(constraints map[string][]any) []Validator {
	names := make([]string, 0, len(constraints))
	for name := range constraints {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Validator, 0, len(names))
	for _, name := range names {
		if v, ok := ValidatorFor(name, constraints[name]); ok {
			out = append(out, v)
		}
	}
	return out
}

// ValidatorFor returns the validator for one constraint. Except for
// required, validators accept empty values.
func ValidatorFor(name string, args []any) (Validator, bool) {
	fail := func(msg string, params ...any) *ValidationError {
		return &ValidationError{Keyword: name, Params: params, Message: msg}
	}
	number := func() (float64, bool) {
		if len(args) == 0 {
			return 0, false
		}
		return values.ToFloat(args[0])
	}

	switch name {
	case ConstraintRequired:
		if len(args) > 0 && args[0] == false {
			return nil, false
		}
		return func(v any) *ValidationError {
			if values.IsEmpty(v) {
				return fail("This field is required.")
			}
			return nil
		}, true

	case ConstraintType:
		types := make([]string, 0, len(args))
		for _, a := range args {
			if s, ok := a.(string); ok {
				types = append(types, s)
			}
		}
		if len(types) == 0 {
			return nil, false
		}
		return func(v any) *ValidationError {
			if !values.HasValue(v) {
				return nil
			}
			actual := values.TypeOf(v)
			for _, t := range types {
				if t == actual || (t == values.TypeNumber && actual == values.TypeInteger) {
					return nil
				}
				// input widgets hold text; formatting converts it on submit
				if values.IsPrimitive(v) && values.ToNative(v, t) != nil {
					return nil
				}
			}
			return fail(fmt.Sprintf("Must be %s.", strings.Join(types, " or ")), args...)
		}, true

	case ConstraintEnum:
		if len(args) == 0 {
			return nil, false
		}
		return func(v any) *ValidationError {
			if !values.HasValue(v) {
				return nil
			}
			if list, ok := v.([]any); ok {
				for _, item := range list {
					if !values.InArray(item, args) {
						return fail("Must be one of the allowed values.")
					}
				}
				return nil
			}
			if !values.InArray(v, args) {
				return fail("Must be one of the allowed values.")
			}
			return nil
		}, true

	case ConstraintConst:
		if len(args) == 0 {
			return nil, false
		}
		return func(v any) *ValidationError {
			if values.HasValue(v) && !values.Equal(v, args[0]) {
				return fail(fmt.Sprintf("Must be %v.", args[0]), args[0])
			}
			return nil
		}, true

	case ConstraintMinLength, ConstraintMaxLength:
		n, ok := number()
		if !ok {
			return nil, false
		}
		return func(v any) *ValidationError {
			s, isString := v.(string)
			if !isString || s == "" {
				return nil
			}
			length := float64(utf8.RuneCountInString(s))
			if name == ConstraintMinLength && length < n {
				return fail(fmt.Sprintf("Must be %v characters or longer.", n), n)
			}
			if name == ConstraintMaxLength && length > n {
				return fail(fmt.Sprintf("Must be %v characters or shorter.", n), n)
			}
			return nil
		}, true

	case ConstraintPattern:
		if len(args) == 0 {
			return nil, false
		}
		pattern, _ := args[0].(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, false
		}
		return func(v any) *ValidationError {
			s, isString := v.(string)
			if !isString || s == "" || re.MatchString(s) {
				return nil
			}
			return fail(fmt.Sprintf("Must match pattern: %s", pattern), pattern)
		}, true

	case ConstraintFormat:
		if len(args) == 0 {
			return nil, false
		}
		format, _ := args[0].(string)
		check, known := formatCheckers[format]
		if !known {
			return nil, false
		}
		return func(v any) *ValidationError {
			s, isString := v.(string)
			if !isString || s == "" || check(s) {
				return nil
			}
			return fail(fmt.Sprintf("Must be a correctly formatted %s.", format), format)
		}, true

	case ConstraintMinimum, ConstraintMaximum, ConstraintExclusiveMinimum, ConstraintExclusiveMaximum:
		n, ok := number()
		if !ok {
			return nil, false
		}
		return func(v any) *ValidationError {
			if !values.IsNumber(v, true) {
				return nil
			}
			f, _ := values.ToFloat(v)
			switch {
			case name == ConstraintMinimum && f < n:
				return fail(fmt.Sprintf("Must be %v or more.", n), n)
			case name == ConstraintMaximum && f > n:
				return fail(fmt.Sprintf("Must be %v or less.", n), n)
			case name == ConstraintExclusiveMinimum && f <= n:
				return fail(fmt.Sprintf("Must be more than %v.", n), n)
			case name == ConstraintExclusiveMaximum && f >= n:
				return fail(fmt.Sprintf("Must be less than %v.", n), n)
			}
			return nil
		}, true

	case ConstraintMultipleOf:
		n, ok := number()
		if !ok || n <= 0 {
			return nil, false
		}
		return func(v any) *ValidationError {
			if !values.IsNumber(v, true) {
				return nil
			}
			f, _ := values.ToFloat(v)
			q := f / n
			if math.Abs(q-math.Round(q)) > 1e-9 {
				return fail(fmt.Sprintf("Must be a multiple of %v.", n), n)
			}
			return nil
		}, true

	case ConstraintMinItems, ConstraintMaxItems:
		n, ok := number()
		if !ok {
			return nil, false
		}
		return func(v any) *ValidationError {
			list, isList := v.([]any)
			if !isList {
				return nil
			}
			if name == ConstraintMinItems && float64(len(list)) < n {
				return fail(fmt.Sprintf("Must have %v or more items.", n), n)
			}
			if name == ConstraintMaxItems && float64(len(list)) > n {
				return fail(fmt.Sprintf("Must have %v or fewer items.", n), n)
			}
			return nil
		}, true

	case ConstraintUniqueItems:
		return func(v any) *ValidationError {
			list, _ := v.([]any)
			for i := range list {
				for j := i + 1; j < len(list); j++ {
					if values.Equal(list[i], list[j]) {
						return fail("Items must be unique.")
					}
				}
			}
			return nil
		}, true

	case ConstraintMinProperties, ConstraintMaxProperties:
		n, ok := number()
		if !ok {
			return nil, false
		}
		return func(v any) *ValidationError {
			obj, isObj := v.(map[string]any)
			if !isObj {
				return nil
			}
			count := 0
			for _, item := range obj {
				if values.HasValue(item) {
					count++
				}
			}
			if name == ConstraintMinProperties && float64(count) < n {
				return fail(fmt.Sprintf("Must have %v or more properties.", n), n)
			}
			if name == ConstraintMaxProperties && float64(count) > n {
				return fail(fmt.Sprintf("Must have %v or fewer properties.", n), n)
			}
			return nil
		}, true

	case ConstraintDependencies:
		if len(args) == 0 {
			return nil, false
		}
		deps, _ := args[0].(map[string]any)
		if len(deps) == 0 {
			return nil, false
		}
		return func(v any) *ValidationError {
			obj, isObj := v.(map[string]any)
			if !isObj {
				return nil
			}
			var missing []string
			for key, dep := range deps {
				if !values.HasValue(obj[key]) {
					continue
				}
				list, _ := dep.([]any)
				for _, item := range list {
					field, _ := item.(string)
					if field != "" && !values.HasValue(obj[field]) {
						missing = append(missing, field)
					}
				}
			}
			if len(missing) == 0 {
				return nil
			}
			slices.Sort(missing)
			return fail("Missing required dependencies: "+strings.Join(missing, ", "), stringArgs(missing)...)
		}, true
	}
	return nil, false
}

var (
	hostnamePattern = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)
	colorPattern    = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

var formatCheckers = map[string]func(string) bool{
	"date": func(s string) bool {
		_, err := time.Parse(time.DateOnly, s)
		return err == nil
	},
	"time": func(s string) bool {
		for _, layout := range []string{"15:04:05Z07:00", "15:04:05", "15:04"} {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
		return false
	},
	"date-time": func(s string) bool {
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	},
	"email": func(s string) bool {
		addr, err := mail.ParseAddress(s)
		return err == nil && addr.Address == s
	},
	"hostname": func(s string) bool {
		return len(s) <= 253 && hostnamePattern.MatchString(s)
	},
	"ipv4": func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && ip.To4() != nil && strings.Contains(s, ".")
	},
	"ipv6": func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && strings.Contains(s, ":")
	},
	"uri": func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != ""
	},
	"url": func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	},
	"uri-reference": func(s string) bool {
		_, err := url.Parse(s)
		return err == nil
	},
	"uuid": func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	"color": colorPattern.MatchString,
	"regex": func(s string) bool {
		_, err := regexp.Compile(s)
		return err == nil
	},
}

func stringArgs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
