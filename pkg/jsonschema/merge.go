package jsonschema

import (
	"sort"

	"github.com/goliatone/go-jsonform/pkg/values"
)

var (
	lowerBoundKeywords = map[string]bool{"minimum": true, "minLength": true, "minItems": true, "minProperties": true}
	upperBoundKeywords = map[string]bool{"maximum": true, "maxLength": true, "maxItems": true, "maxProperties": true}
)

// MergeSchemas combines schemas left to right into a new schema. Later
// schemas win for plain keywords. Properties merge per key, required and
// ui:order lists are unioned, enums intersect, numeric bounds keep the
// tighter value and types intersect.
func MergeSchemas(schemas ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, s := range schemas {
		for key, next := range s {
			prev, exists := out[key]
			if !exists {
				out[key] = cloneAny(next)
				continue
			}
			out[key] = mergeKeyword(key, prev, next)
		}
	}
	return out
}

func mergeKeyword(key string, prev, next any) any {
	switch {
	case key == "properties" || key == "definitions" || key == "patternProperties":
		a, okA := prev.(map[string]any)
		b, okB := next.(map[string]any)
		if !okA || !okB {
			return cloneAny(next)
		}
		merged := make(map[string]any, len(a)+len(b))
		for k, v := range a {
			merged[k] = v
		}
		for k, v := range b {
			if existing, ok := merged[k].(map[string]any); ok {
				if nv, ok := v.(map[string]any); ok {
					merged[k] = MergeSchemas(existing, nv)
					continue
				}
			}
			merged[k] = cloneAny(v)
		}
		return merged
	case key == "items" || key == "additionalProperties" || key == "additionalItems" || key == "not":
		a, okA := prev.(map[string]any)
		b, okB := next.(map[string]any)
		if okA && okB {
			return MergeSchemas(a, b)
		}
		return cloneAny(next)
	case key == "required" || key == OrderKey:
		a, b := stringList(prev), stringList(next)
		for _, s := range b {
			if !containsString(a, s) {
				a = append(a, s)
			}
		}
		list := make([]any, len(a))
		for i, s := range a {
			list[i] = s
		}
		return list
	case key == "enum":
		a, okA := prev.([]any)
		b, okB := next.([]any)
		if !okA || !okB {
			return cloneAny(next)
		}
		var both []any
		for _, v := range a {
			if values.InArray(v, b) {
				both = append(both, v)
			}
		}
		if len(both) == 0 {
			return cloneAny(next)
		}
		return both
	case key == "allOf" || key == "anyOf" || key == "oneOf":
		a, okA := prev.([]any)
		b, okB := next.([]any)
		if okA && okB {
			return append(append([]any{}, a...), cloneAny(b).([]any)...)
		}
		return cloneAny(next)
	case key == "type":
		return intersectTypes(prev, next)
	case lowerBoundKeywords[key] || upperBoundKeywords[key]:
		a, okA := values.ToFloat(prev)
		b, okB := values.ToFloat(next)
		if !okA || !okB {
			return next
		}
		if (lowerBoundKeywords[key] && a > b) || (upperBoundKeywords[key] && a < b) {
			return prev
		}
		return next
	}
	return cloneAny(next)
}

func intersectTypes(prev, next any) any {
	a, b := Types(map[string]any{"type": prev}), Types(map[string]any{"type": next})
	if len(a) == 0 {
		return cloneAny(next)
	}
	if len(b) == 0 {
		return cloneAny(prev)
	}
	var both []string
	for _, t := range a {
		switch {
		case containsString(b, t):
			both = append(both, t)
		case t == "number" && containsString(b, "integer"):
			both = append(both, "integer")
		case t == "integer" && containsString(b, "number"):
			both = append(both, "integer")
		}
	}
	if len(both) == 0 {
		return cloneAny(next)
	}
	sort.Strings(both)
	if len(both) == 1 {
		return both[0]
	}
	list := make([]any, 0, len(both))
	for i, t := range both {
		if i > 0 && both[i-1] == t {
			continue
		}
		list = append(list, t)
	}
	return list
}

// CombineAllOf merges an allOf list of object schemas into the owning schema.
// Keys of the owning schema win over the merged members. The schema is
// returned unchanged when a member is not an object or still holds a $ref.
func CombineAllOf(node map[string]any) map[string]any {
	members, ok := node["allOf"].([]any)
	if !ok || len(members) == 0 {
		return node
	}
	parts := make([]map[string]any, 0, len(members)+1)
	for _, member := range members {
		m, ok := member.(map[string]any)
		if !ok {
			return node
		}
		if _, isRef := m["$ref"]; isRef {
			return node
		}
		parts = append(parts, m)
	}
	rest := make(map[string]any, len(node))
	for k, v := range node {
		if k != "allOf" {
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		parts = append(parts, rest)
	}
	return MergeSchemas(parts...)
}

// FixRequiredArrayProperties moves a required list set on an array schema
// onto its item schema when every listed key is an item property.
func FixRequiredArrayProperties(node map[string]any) map[string]any {
	if node["type"] != "array" {
		return node
	}
	required, ok := node["required"].([]any)
	if !ok {
		return node
	}
	field := ""
	for _, candidate := range []string{"items", "additionalItems"} {
		if m, ok := node[candidate].(map[string]any); ok {
			if _, ok := m["properties"]; ok {
				field = candidate
				break
			}
		}
	}
	if field == "" {
		return node
	}
	item := node[field].(map[string]any)
	if _, has := item["required"]; has {
		return node
	}
	props, _ := item["properties"].(map[string]any)
	if _, open := item["additionalProperties"]; !open {
		for _, key := range required {
			s, _ := key.(string)
			if _, ok := props[s]; !ok {
				return node
			}
		}
	}
	out := make(map[string]any, len(node))
	for k, v := range node {
		out[k] = v
	}
	nextItem := make(map[string]any, len(item)+1)
	for k, v := range item {
		nextItem[k] = v
	}
	nextItem["required"] = required
	out[field] = nextItem
	delete(out, "required")
	return out
}

// cloneAny deep copies JSON-like values.
func cloneAny(v any) any { return values.Clone(v) }
