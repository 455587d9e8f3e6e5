package pointer

import "sort"

// VisitFunc receives every node visited by ForEachDeep.
type VisitFunc func(value any, p Pointer, root any)

// ForEachDeep calls fn for obj and every value nested inside it, containers
// included. Pre-order by default, post-order when bottomUp is set. Map keys
// are visited in sorted order.
func ForEachDeep(obj any, fn VisitFunc, bottomUp bool) {
	if fn == nil {
		return
	}
	walk(obj, Pointer{}, obj, fn, bottomUp)
}

func walk(value any, p Pointer, root any, fn VisitFunc, bottomUp bool) {
	if !bottomUp {
		fn(value, p, root)
	}
	switch typed := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(typed) {
			walk(typed[key], p.Append(key), root, fn, bottomUp)
		}
	case []any:
		for i, item := range typed {
			walk(item, p.AppendIndex(i), root, fn, bottomUp)
		}
	}
	if bottomUp {
		fn(value, p, root)
	}
}

// MapFunc returns the replacement for a visited value.
type MapFunc func(value any, p Pointer) any

// MapDeep returns a transformed copy of obj. Containers are copied, never
// mutated. In pre-order mode fn sees a node before its children and the
// children of fn's result are visited; in bottom-up mode fn sees a container
// whose children were already transformed. base is the pointer reported for
// obj itself.
func MapDeep(obj any, base Pointer, fn MapFunc, bottomUp bool) any {
	if fn == nil {
		return obj
	}
	return mapDeep(obj, base, fn, bottomUp)
}

func mapDeep(value any, p Pointer, fn MapFunc, bottomUp bool) any {
	if !bottomUp {
		value = fn(value, p)
	}
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for _, key := range sortedKeys(typed) {
			out[key] = mapDeep(typed[key], p.Append(key), fn, bottomUp)
		}
		value = out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = mapDeep(item, p.AppendIndex(i), fn, bottomUp)
		}
		value = out
	}
	if bottomUp {
		value = fn(value, p)
	}
	return value
}

// Dict flattens obj into a map from pointer string to leaf value.
func Dict(obj any) map[string]any {
	out := map[string]any{}
	ForEachDeep(obj, func(value any, p Pointer, _ any) {
		switch value.(type) {
		case map[string]any, []any:
			return
		}
		out[p.String()] = value
	}, false)
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
