package control

import (
	"sort"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/values"
)

// Constraint names produced by ExtractConstraints.
const (
	ConstraintRequired         = "required"
	ConstraintType             = "type"
	ConstraintEnum             = "enum"
	ConstraintConst            = "const"
	ConstraintMinLength        = "minLength"
	ConstraintMaxLength        = "maxLength"
	ConstraintPattern          = "pattern"
	ConstraintFormat           = "format"
	ConstraintMinimum          = "minimum"
	ConstraintMaximum          = "maximum"
	ConstraintExclusiveMinimum = "exclusiveMinimum"
	ConstraintExclusiveMaximum = "exclusiveMaximum"
	ConstraintMultipleOf       = "multipleOf"
	ConstraintMinItems         = "minItems"
	ConstraintMaxItems         = "maxItems"
	ConstraintUniqueItems      = "uniqueItems"
	ConstraintMinProperties    = "minProperties"
	ConstraintMaxProperties    = "maxProperties"
	ConstraintDependencies     = "dependencies"
)

// ExtractConstraints collects the validation keywords of a schema node that
// apply to its declared types. Each constraint maps to its argument list.
// A draft-04 boolean exclusiveMinimum turns minimum into exclusiveMinimum.
func ExtractConstraints(node map[string]any) map[string][]any {
	out := map[string][]any{}
	types := jsonschema.Types(node)
	if len(types) > 0 {
		args := make([]any, len(types))
		for i, t := range types {
			args[i] = t
		}
		out[ConstraintType] = args
	}
	if list, ok := node["enum"].([]any); ok && len(list) > 0 {
		out[ConstraintEnum] = values.Clone(list).([]any)
	}
	if v, ok := node["const"]; ok {
		out[ConstraintConst] = []any{values.Clone(v)}
	}

	has := func(t string) bool {
		if len(types) == 0 {
			return true
		}
		for _, declared := range types {
			if declared == t || (t == values.TypeNumber && declared == values.TypeInteger) {
				return true
			}
		}
		return false
	}

	if has(values.TypeString) {
		copyNumber(out, node, ConstraintMinLength)
		copyNumber(out, node, ConstraintMaxLength)
		if s, ok := node["pattern"].(string); ok && s != "" {
			out[ConstraintPattern] = []any{s}
		}
		if s, ok := node["format"].(string); ok && s != "" {
			out[ConstraintFormat] = []any{s}
		}
	}
	if has(values.TypeNumber) {
		numericBound(out, node, ConstraintMinimum, ConstraintExclusiveMinimum)
		numericBound(out, node, ConstraintMaximum, ConstraintExclusiveMaximum)
		copyNumber(out, node, ConstraintMultipleOf)
	}
	if has(values.TypeObject) {
		copyNumber(out, node, ConstraintMinProperties)
		copyNumber(out, node, ConstraintMaxProperties)
		if deps, ok := node["dependencies"].(map[string]any); ok && len(deps) > 0 {
			out[ConstraintDependencies] = []any{values.Clone(deps)}
		}
	}
	if has(values.TypeArray) {
		copyNumber(out, node, ConstraintMinItems)
		copyNumber(out, node, ConstraintMaxItems)
		if b, ok := node["uniqueItems"].(bool); ok && b {
			out[ConstraintUniqueItems] = []any{true}
		}
	}
	return out
}

func copyNumber(out map[string][]any, node map[string]any, key string) {
	if f, ok := values.ToFloat(node[key]); ok && values.IsNumber(node[key], true) {
		out[key] = []any{f}
	}
}

func numericBound(out map[string][]any, node map[string]any, key, exclusiveKey string) {
	bound, hasBound := node[key]
	if hasBound && !values.IsNumber(bound, true) {
		hasBound = false
	}
	switch ex := node[exclusiveKey].(type) {
	case bool:
		if hasBound && ex {
			f, _ := values.ToFloat(bound)
			out[exclusiveKey] = []any{f}
			return
		}
	default:
		if values.IsNumber(ex, true) {
			f, _ := values.ToFloat(ex)
			out[exclusiveKey] = []any{f}
		}
	}
	if hasBound {
		f, _ := values.ToFloat(bound)
		out[key] = []any{f}
	}
}

func sortStrings(in []string) []string {
	sort.Strings(in)
	return in
}
