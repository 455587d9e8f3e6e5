package form

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/values"
)

var partialDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d+)?)?$`)

// FormatData converts a raw Control Tree value into form data: leaves are
// coerced to their schema type, empty fields are dropped unless
// ReturnEmptyFields is set and partial date-time values are completed.
func (f *Form) FormatData(raw any) any {
	return f.unwrap(f.format(raw, pointer.Root()))
}

func (f *Form) format(v any, p pointer.Pointer) any {
	keepEmpty := f.cfg.options.ReturnEmptyFields
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			cv := f.format(child, p.Append(k))
			if !keepEmpty && isEmptyField(cv) {
				continue
			}
			out[k] = cv
		}
		if !keepEmpty {
			f.fillRequired(out, p)
		}
		return out
	case []any:
		tuple := f.tupleCount(p)
		out := make([]any, 0, len(typed))
		for i, item := range typed {
			cv := f.format(item, p.AppendIndex(i))
			if !keepEmpty && i >= tuple && cv == nil {
				continue
			}
			out = append(out, cv)
		}
		return out
	}
	return f.formatLeaf(v, p)
}

func (f *Form) formatLeaf(v any, p pointer.Pointer) any {
	e, ok := f.entry(p)
	if !ok || e.SchemaType == "" {
		return v
	}
	if v == nil {
		return nil
	}
	if s, isString := v.(string); isString && s == "" && e.SchemaType != values.TypeString {
		return nil
	}
	types := strings.Split(e.SchemaType, "|")
	var out any
	if f.cfg.options.FixErrors {
		out = values.ToSchemaType(v, types...)
	} else if out = values.ToNative(v, types...); out == nil {
		out = v
	}
	if s, isString := out.(string); isString && e.SchemaFormat == "date-time" {
		out = completeDateTime(s)
	}
	return out
}

// fillRequired adds empty containers for required object and array
// properties the data left out.
func (f *Form) fillRequired(out map[string]any, p pointer.Pointer) {
	e, ok := f.entry(p)
	if !ok {
		return
	}
	for _, name := range e.Required {
		if _, present := out[name]; present {
			continue
		}
		child, ok := f.entry(p.Append(name))
		if !ok {
			continue
		}
		switch child.SchemaType {
		case values.TypeObject:
			out[name] = map[string]any{}
		case values.TypeArray:
			out[name] = []any{}
		}
	}
}

// completeDateTime adds missing seconds and a UTC zone to a local
// date-time such as the value of a datetime-local input.
func completeDateTime(s string) string {
	m := partialDateTime.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	if m[1] == "" {
		s += ":00"
	}
	return s + "Z"
}

func isEmptyField(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
