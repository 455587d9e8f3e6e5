package widgets

import (
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

// Built-in widget identifiers.
const (
	WidgetText       = "text"
	WidgetTextarea   = "textarea"
	WidgetCheckbox   = "checkbox"
	WidgetCheckboxes = "checkboxes"
	WidgetRadios     = "radios"
	WidgetSelect     = "select"
	WidgetRange      = "range"
	WidgetSection    = "section"
	WidgetFieldset   = "fieldset"
	WidgetArray      = "array"
	WidgetTabArray   = "tabarray"
	WidgetRef        = "$ref"
	WidgetOneOf      = "one-of"
	WidgetSubmit     = "submit"
	WidgetNone       = "none"
)

var builtinWidgets = []Widget{
	{Name: "none", Kind: KindNone},
	{Name: "text", Kind: KindInput, InputType: "text"},
	{Name: "email", Kind: KindInput, InputType: "email"},
	{Name: "hidden", Kind: KindInput, InputType: "hidden"},
	{Name: "integer", Kind: KindInput, InputType: "number"},
	{Name: "number", Kind: KindInput, InputType: "number"},
	{Name: "password", Kind: KindInput, InputType: "password"},
	{Name: "range", Kind: KindInput, InputType: "range"},
	{Name: "url", Kind: KindInput, InputType: "url"},
	{Name: "color", Kind: KindInput, InputType: "color"},
	{Name: "date", Kind: KindInput, InputType: "date"},
	{Name: "datetime-local", Kind: KindInput, InputType: "datetime-local"},
	{Name: "time", Kind: KindInput, InputType: "time"},
	{Name: "month", Kind: KindInput, InputType: "month"},
	{Name: "week", Kind: KindInput, InputType: "week"},
	{Name: "tel", Kind: KindInput, InputType: "tel"},
	{Name: "search", Kind: KindInput, InputType: "search"},
	{Name: "file", Kind: KindInput, InputType: "file"},
	{Name: "textarea", Kind: KindInput},
	{Name: "checkbox", Kind: KindInput, InputType: "checkbox"},
	{Name: "select", Kind: KindChoice},
	{Name: "radios", Kind: KindChoice, InputType: "radio"},
	{Name: "radios-inline", Kind: KindChoice, InputType: "radio"},
	{Name: "radiobuttons", Kind: KindChoice, InputType: "radio"},
	{Name: "checkboxes", Kind: KindChoice, InputType: "checkbox", Multiple: true},
	{Name: "checkboxes-inline", Kind: KindChoice, InputType: "checkbox", Multiple: true},
	{Name: "checkbuttons", Kind: KindChoice, InputType: "checkbox", Multiple: true},
	{Name: "section", Kind: KindContainer},
	{Name: "fieldset", Kind: KindContainer},
	{Name: "advancedfieldset", Kind: KindContainer},
	{Name: "authfieldset", Kind: KindContainer},
	{Name: "optionfieldset", Kind: KindContainer},
	{Name: "selectfieldset", Kind: KindContainer},
	{Name: "conditional", Kind: KindContainer},
	{Name: "actions", Kind: KindContainer},
	{Name: "div", Kind: KindContainer},
	{Name: "flex", Kind: KindContainer},
	{Name: "tabs", Kind: KindContainer},
	{Name: "tab", Kind: KindContainer},
	{Name: "one-of", Kind: KindContainer},
	{Name: "array", Kind: KindArray},
	{Name: "tabarray", Kind: KindArray},
	{Name: "$ref", Kind: KindRef},
	{Name: "button", Kind: KindButton},
	{Name: "submit", Kind: KindButton, InputType: "submit"},
	{Name: "reset", Kind: KindButton, InputType: "reset"},
	{Name: "help", Kind: KindStatic},
	{Name: "message", Kind: KindStatic},
	{Name: "html", Kind: KindStatic},
	{Name: "template", Kind: KindStatic},
}

var builtinAliases = map[string]string{
	"msg":      "message",
	"radio":    "radios",
	"datetime": "datetime-local",
	"string":   "text",
	"boolean":  "checkbox",
	"object":   "section",
	"uri":      "url",
}

var formatWidgets = map[string]string{
	"color":     "color",
	"date":      "date",
	"date-time": "datetime-local",
	"email":     "email",
	"uri":       "url",
}

func (r *Registry) registerBuiltins() {
	for _, w := range builtinWidgets {
		r.Register(w)
	}
	for alias, target := range builtinAliases {
		r.Alias(alias, target)
	}

	r.RegisterRule(WidgetCheckbox, 100, func(in Input) bool {
		return in.Type == "boolean"
	})
	r.RegisterRule(WidgetSection, 95, func(in Input) bool {
		if in.Type != "object" {
			return false
		}
		_, props := in.Schema["properties"]
		_, extra := in.Schema["additionalProperties"]
		return props || extra
	})
	r.RegisterRule(WidgetRef, 94, func(in Input) bool {
		_, ref := in.Schema["$ref"]
		return in.Type == "object" && ref
	})
	r.RegisterRule(WidgetCheckboxes, 93, func(in Input) bool {
		if in.Type != "array" {
			return false
		}
		items, ok := in.Schema["items"].(map[string]any)
		if !ok {
			items, _ = in.Schema["additionalItems"].(map[string]any)
		}
		_, enum := items["enum"]
		return enum && !isOne(in.Schema["maxItems"])
	})
	r.RegisterRule(WidgetArray, 92, func(in Input) bool {
		return in.Type == "array"
	})
	r.RegisterRule(WidgetNone, 91, func(in Input) bool {
		return in.Type == "null"
	})
	r.RegisterRule(WidgetSelect, 90, func(in Input) bool {
		if _, ok := in.Options["titleMap"]; ok {
			return true
		}
		if _, ok := in.Schema["enum"]; ok {
			return true
		}
		_, ok := jsonschema.TitleMapFromOneOf(in.Schema)
		return ok
	})
	r.RegisterRule(WidgetRange, 85, func(in Input) bool {
		_, multiple := in.Schema["multipleOf"]
		_, hasMin := in.Schema["minimum"]
		_, hasMax := in.Schema["maximum"]
		return (in.Type == "integer" || (in.Type == "number" && multiple)) && hasMin && hasMax
	})
	r.RegisterRule("number", 84, func(in Input) bool { return in.Type == "number" })
	r.RegisterRule("integer", 83, func(in Input) bool { return in.Type == "integer" })
	for format, name := range formatWidgets {
		format := format
		r.RegisterRule(name, 80, func(in Input) bool {
			f, _ := in.Schema["format"].(string)
			return in.Type == "string" && f == format
		})
	}
	r.RegisterRule(WidgetText, 79, func(in Input) bool { return in.Type == "string" })
	r.RegisterRule(WidgetRef, 70, func(in Input) bool {
		_, ref := in.Schema["$ref"]
		return ref
	})
	r.RegisterRule(WidgetOneOf, 60, func(in Input) bool {
		_, oneOf := in.Schema["oneOf"].([]any)
		_, anyOf := in.Schema["anyOf"].([]any)
		return oneOf || anyOf
	})
}

func isOne(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 1
	case int:
		return n == 1
	case int64:
		return n == 1
	}
	return false
}
