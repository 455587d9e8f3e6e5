package jsonschema

import (
	"sort"

	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/values"
)

// Types returns the JSON types a schema node declares, in declared order.
func Types(node map[string]any) []string {
	switch t := node["type"].(type) {
	case string:
		return []string{t}
	case []any:
		return stringList(t)
	case []string:
		return append([]string(nil), t...)
	}
	return nil
}

// PrimaryType returns the first non-null declared type, inferring object or
// array from properties and items when no type is set.
func PrimaryType(node map[string]any) string {
	types := Types(node)
	for _, t := range types {
		if t != "null" {
			return t
		}
	}
	if len(types) > 0 {
		return types[0]
	}
	if _, ok := node["properties"]; ok {
		return "object"
	}
	if _, ok := node["items"]; ok {
		return "array"
	}
	return ValueType(node)
}

// ValueType infers the type of an untyped node from its enum, const or
// oneOf/anyOf const members. Integers widen to number when mixed with
// fractions. It returns "" when the values disagree or there are none.
func ValueType(node map[string]any) string {
	var vals []any
	if enum, ok := node["enum"].([]any); ok {
		vals = enum
	} else if c, ok := node["const"]; ok {
		vals = []any{c}
	} else if entries, ok := TitleMapFromOneOf(node); ok {
		for _, e := range entries {
			vals = append(vals, e.Value)
		}
	}
	out := ""
	for _, v := range vals {
		t := values.TypeOf(v)
		switch {
		case t == values.TypeNull:
			continue
		case out == "" || out == t:
			out = t
		case isNumeric(out) && isNumeric(t):
			out = values.TypeNumber
		default:
			return ""
		}
	}
	return out
}

func isNumeric(t string) bool {
	return t == values.TypeInteger || t == values.TypeNumber
}

// ToDataPointer converts a schema pointer into the generic data pointer it
// describes. properties/x becomes x, items and additionalItems become the
// any-index placeholder and tuple items/n keeps n. It reports false for
// pointers through keywords with no data counterpart.
func ToDataPointer(schemaPtr pointer.Pointer, root map[string]any) (pointer.Pointer, bool) {
	data := pointer.Root()
	var node any = root
	for i := 0; i < len(schemaPtr); i++ {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		key := schemaPtr[i].Key()
		switch key {
		case "properties":
			if i+1 >= len(schemaPtr) {
				return nil, false
			}
			props, _ := m["properties"].(map[string]any)
			name := schemaPtr[i+1].Key()
			data = data.Append(name)
			node = props[name]
			i++
		case "items":
			if tuple, ok := m["items"].([]any); ok {
				if i+1 >= len(schemaPtr) {
					return nil, false
				}
				idx, ok := schemaPtr[i+1].Index()
				if !ok || idx >= len(tuple) {
					return nil, false
				}
				data = data.AppendIndex(idx)
				node = tuple[idx]
				i++
				continue
			}
			data = data.AppendAny()
			node = m["items"]
		case "additionalItems":
			data = data.AppendAny()
			node = m["additionalItems"]
		case "additionalProperties":
			return nil, false
		default:
			return nil, false
		}
	}
	return data, true
}

// ToSchemaPointer converts a generic or indexed data pointer into the schema
// pointer describing it. It does not follow $ref nodes; shorten recursive
// pointers first.
func ToSchemaPointer(dataPtr pointer.Pointer, root map[string]any) (pointer.Pointer, bool) {
	out := pointer.Root()
	var node any = root
	for _, seg := range dataPtr {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if props, ok := m["properties"].(map[string]any); ok && !seg.IsWildcard() {
			if child, ok := props[seg.Key()]; ok {
				out = out.Append("properties", seg.Key())
				node = child
				continue
			}
		}
		switch items := m["items"].(type) {
		case []any:
			if idx, ok := seg.Index(); ok && !seg.IsWildcard() && idx < len(items) {
				out = out.Append("items").AppendIndex(idx)
				node = items[idx]
				continue
			}
			if extra, ok := m["additionalItems"].(map[string]any); ok {
				out = out.Append("additionalItems")
				node = extra
				continue
			}
			return nil, false
		case map[string]any:
			if _, ok := seg.Index(); ok || seg.IsWildcard() {
				out = out.Append("items")
				node = items
				continue
			}
			return nil, false
		}
		if extra, ok := m["additionalProperties"].(map[string]any); ok {
			out = out.Append("additionalProperties")
			node = extra
			continue
		}
		return nil, false
	}
	return out, true
}

// ParentSchema returns the schema of the object or array containing the
// schema node at schemaPtr.
func ParentSchema(schemaPtr pointer.Pointer, root map[string]any) (map[string]any, bool) {
	if len(schemaPtr) == 0 {
		return nil, false
	}
	trim := 1
	if last, _ := schemaPtr.Last(); len(schemaPtr) >= 2 {
		parentKey := schemaPtr[len(schemaPtr)-2].Key()
		_, isIndex := last.Index()
		if parentKey == "properties" || (parentKey == "items" && isIndex) {
			trim = 2
		}
	}
	v, ok := pointer.Get(root, schemaPtr.Trim(0, trim))
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// IsInputRequired reports whether the property addressed by schemaPtr is
// listed in its parent's required list.
func IsInputRequired(schemaPtr pointer.Pointer, root map[string]any) bool {
	if len(schemaPtr) < 2 || schemaPtr[len(schemaPtr)-2].Key() != "properties" {
		return false
	}
	parent, ok := ParentSchema(schemaPtr, root)
	if !ok {
		return false
	}
	last, _ := schemaPtr.Last()
	return containsString(stringList(parent["required"]), last.Key())
}

// TitleMapEntry is one selectable option.
type TitleMapEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// TitleMapFromOneOf builds a title map when every oneOf (or anyOf) member
// pins a single value through const or a one-element enum.
func TitleMapFromOneOf(node map[string]any) ([]TitleMapEntry, bool) {
	members, ok := node["oneOf"].([]any)
	if !ok {
		members, ok = node["anyOf"].([]any)
	}
	if !ok || len(members) == 0 {
		return nil, false
	}
	out := make([]TitleMapEntry, 0, len(members))
	for _, member := range members {
		m, ok := member.(map[string]any)
		if !ok {
			return nil, false
		}
		var value any
		if c, ok := m["const"]; ok {
			value = c
		} else if enum, ok := m["enum"].([]any); ok && len(enum) == 1 {
			value = enum[0]
		} else {
			return nil, false
		}
		name, _ := m["title"].(string)
		if name == "" {
			name = displayValue(value)
		}
		out = append(out, TitleMapEntry{Name: name, Value: value})
	}
	return out, true
}

// TitleMapFromEnum builds a title map from enum, using enumNames when present.
func TitleMapFromEnum(node map[string]any) ([]TitleMapEntry, bool) {
	enum, ok := node["enum"].([]any)
	if !ok || len(enum) == 0 {
		return nil, false
	}
	names := stringList(node["enumNames"])
	out := make([]TitleMapEntry, len(enum))
	for i, v := range enum {
		name := displayValue(v)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		out[i] = TitleMapEntry{Name: name, Value: v}
	}
	return out, true
}

// PropertyOrder lists the property keys of an object schema following
// ui:order. A "*" entry expands to the remaining keys in sorted order and
// keys missing from the order are appended when there is no "*". Order
// entries that are not properties are skipped.
func PropertyOrder(node map[string]any) []string {
	props, _ := node["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}
	var rest []string
	order := stringList(node[OrderKey])
	listed := map[string]bool{}
	for _, key := range order {
		listed[key] = true
	}
	for key := range props {
		if key != OrderKey && !listed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	out := make([]string, 0, len(props))
	expanded := false
	seen := map[string]bool{}
	for _, key := range order {
		if key == "*" {
			if !expanded {
				out = append(out, rest...)
				expanded = true
			}
			continue
		}
		if _, ok := props[key]; !ok || key == OrderKey || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	if !expanded {
		out = append(out, rest...)
	}
	return out
}

func readString(node map[string]any, key string) string {
	if node == nil {
		return ""
	}
	s, _ := node[key].(string)
	return s
}

func displayValue(v any) string {
	if s, ok := values.ToString(v); ok {
		return s
	}
	return ""
}
