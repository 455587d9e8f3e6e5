package jsonschema

import (
	"sort"
	"strings"
)

const (
	// ConvertedMarker is appended to a schema id after a legacy conversion.
	ConvertedMarker = "-CONVERTED-TO-DRAFT-04"
	draft4URI       = "http://json-schema.org/draft-04/schema#"
)

var (
	schemaMapKeywords   = []string{"properties", "patternProperties", "definitions", "$defs"}
	schemaValueKeywords = []string{"items", "additionalItems", "additionalProperties", "not", "contains", "propertyNames", "if", "then", "else"}
	schemaListKeywords  = []string{"allOf", "anyOf", "oneOf"}
)

// ConvertLegacyDialect rewrites draft-3 constructs into their draft-4
// equivalents and returns the converted copy. The input is not modified.
// Converting a converted schema is a no-op.
//
//   - boolean required on a property becomes a required list on its parent
//   - multi-valued type becomes anyOf, "any" drops the type
//   - extends becomes allOf, disallow becomes not
//   - string dependencies become one-element lists
//   - divisibleBy becomes multipleOf
func ConvertLegacyDialect(schema map[string]any) map[string]any {
	out, _ := convertLegacyRoot(schema)
	return out
}

func convertLegacyRoot(schema map[string]any) (map[string]any, bool) {
	if schema == nil {
		return nil, false
	}
	out, changed := convertLegacy(schema)
	if !changed {
		return out, false
	}
	if s, ok := out["$schema"].(string); ok && strings.Contains(s, "draft-03") {
		out["$schema"] = draft4URI
	}
	if id, ok := out["id"].(string); ok && !strings.HasSuffix(id, ConvertedMarker) {
		out["id"] = id + ConvertedMarker
	}
	return out, true
}

func convertLegacy(node map[string]any) (map[string]any, bool) {
	out := make(map[string]any, len(node))
	for k, v := range node {
		out[k] = v
	}
	changed := false

	if props, ok := out["properties"].(map[string]any); ok {
		required := stringList(out["required"])
		hoisted := false
		for _, key := range propertyKeys(out, props) {
			child, ok := props[key].(map[string]any)
			if !ok {
				continue
			}
			flag, ok := child["required"].(bool)
			if !ok {
				continue
			}
			hoisted = true
			if flag && !containsString(required, key) {
				required = append(required, key)
			}
		}
		if hoisted {
			changed = true
			if len(required) > 0 {
				list := make([]any, len(required))
				for i, r := range required {
					list[i] = r
				}
				out["required"] = list
			} else {
				delete(out, "required")
			}
		}
	}
	if _, ok := out["required"].(bool); ok {
		delete(out, "required")
		changed = true
	}

	switch t := out["type"].(type) {
	case string:
		if t == "any" {
			delete(out, "type")
			changed = true
		}
	case []any:
		if !legacyTypeList(t) {
			break
		}
		options := make([]any, 0, len(t))
		for _, item := range t {
			options = append(options, typeToSchema(item))
		}
		delete(out, "type")
		if existing, ok := out["anyOf"].([]any); ok {
			all, _ := out["allOf"].([]any)
			out["allOf"] = append(append([]any{}, all...), map[string]any{"anyOf": existing}, map[string]any{"anyOf": options})
			delete(out, "anyOf")
		} else {
			out["anyOf"] = options
		}
		changed = true
	}

	if ext, ok := out["extends"]; ok {
		list, isList := ext.([]any)
		if !isList {
			list = []any{ext}
		}
		all, _ := out["allOf"].([]any)
		merged := append([]any{}, all...)
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				merged = append(merged, m)
			}
		}
		out["allOf"] = merged
		delete(out, "extends")
		changed = true
	}

	if dis, ok := out["disallow"]; ok {
		list, isList := dis.([]any)
		if !isList {
			list = []any{dis}
		}
		options := make([]any, 0, len(list))
		for _, item := range list {
			options = append(options, typeToSchema(item))
		}
		if len(options) == 1 {
			out["not"] = options[0]
		} else {
			out["not"] = map[string]any{"anyOf": options}
		}
		delete(out, "disallow")
		changed = true
	}

	if deps, ok := out["dependencies"].(map[string]any); ok {
		next := make(map[string]any, len(deps))
		for k, v := range deps {
			switch d := v.(type) {
			case string:
				next[k] = []any{d}
				changed = true
			case map[string]any:
				converted, c := convertLegacy(d)
				changed = changed || c
				next[k] = converted
			default:
				next[k] = v
			}
		}
		out["dependencies"] = next
	}

	if div, ok := out["divisibleBy"]; ok {
		if _, has := out["multipleOf"]; !has {
			out["multipleOf"] = div
		}
		delete(out, "divisibleBy")
		changed = true
	}

	for _, kw := range schemaMapKeywords {
		m, ok := out[kw].(map[string]any)
		if !ok {
			continue
		}
		next := make(map[string]any, len(m))
		for k, v := range m {
			if child, ok := v.(map[string]any); ok {
				converted, c := convertLegacy(child)
				changed = changed || c
				next[k] = converted
				continue
			}
			next[k] = v
		}
		out[kw] = next
	}
	for _, kw := range schemaValueKeywords {
		switch v := out[kw].(type) {
		case map[string]any:
			converted, c := convertLegacy(v)
			changed = changed || c
			out[kw] = converted
		case []any:
			out[kw], changed = convertList(v, changed)
		}
	}
	for _, kw := range schemaListKeywords {
		if v, ok := out[kw].([]any); ok {
			out[kw], changed = convertList(v, changed)
		}
	}
	return out, changed
}

func convertList(list []any, changed bool) ([]any, bool) {
	next := make([]any, len(list))
	for i, item := range list {
		if child, ok := item.(map[string]any); ok {
			converted, c := convertLegacy(child)
			changed = changed || c
			next[i] = converted
			continue
		}
		next[i] = item
	}
	return next, changed
}

func typeToSchema(item any) any {
	switch v := item.(type) {
	case string:
		if v == "any" {
			return map[string]any{}
		}
		return map[string]any{"type": v}
	case map[string]any:
		converted, _ := convertLegacy(v)
		return converted
	}
	return map[string]any{}
}

// propertyKeys lists the keys of props in declared order when known.
func propertyKeys(node, props map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, k := range stringList(node[OrderKey]) {
		if _, ok := props[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range props {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// legacyTypeList reports whether a type list holds draft-03 members: schema
// objects or "any". Plain lists of type names are valid in later drafts.
func legacyTypeList(types []any) bool {
	for _, item := range types {
		s, ok := item.(string)
		if !ok || s == "any" {
			return true
		}
	}
	return false
}
