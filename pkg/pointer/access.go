package pointer

import (
	"fmt"
	"slices"
)

// Get walks obj along p. A placeholder (or a literal "-") on a sequence
// resolves to its last element. Absent segments report false.
func Get(obj any, p Pointer) (any, bool) {
	current := obj
	for _, seg := range p {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg.key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, ok := sliceIndex(node, seg)
			if !ok || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// GetRange is Get applied to p with skipLeading segments dropped from the
// front and skipTrailing from the back.
func GetRange(obj any, p Pointer, skipLeading, skipTrailing int) (any, bool) {
	if skipLeading+skipTrailing > len(p) {
		return nil, false
	}
	return Get(obj, p.Trim(skipLeading, skipTrailing))
}

// Has reports whether p resolves inside obj.
func Has(obj any, p Pointer) bool {
	_, ok := Get(obj, p)
	return ok
}

// Lookup pairs an object with a pointer for GetFirst.
type Lookup struct {
	Object  any
	Pointer Pointer
}

// GetFirst returns the first lookup that resolves to a non-nil value.
func GetFirst(lookups ...Lookup) (any, bool) {
	for _, l := range lookups {
		if v, ok := Get(l.Object, l.Pointer); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Set writes value at p, creating intermediate containers as needed: a slice
// when the next segment is numeric or a placeholder, a map otherwise. A
// placeholder on a slice appends. The returned root must replace obj because
// appending to a slice can reallocate it.
func Set(obj any, p Pointer, value any) (any, error) {
	return set(obj, p, value, false)
}

// Insert is Set, except that a numeric index on a slice splices value in
// instead of overwriting.
func Insert(obj any, p Pointer, value any) (any, error) {
	return set(obj, p, value, true)
}

func set(node any, segs Pointer, value any, insert bool) (any, error) {
	if len(segs) == 0 {
		return value, nil
	}
	seg := segs[0]
	if node == nil {
		node = containerFor(seg)
	}
	switch typed := node.(type) {
	case map[string]any:
		child, err := set(typed[seg.key], segs[1:], value, insert)
		if err != nil {
			return nil, err
		}
		typed[seg.key] = child
		return typed, nil
	case []any:
		if seg.wildcard || seg.key == Placeholder {
			child, err := set(nil, segs[1:], value, insert)
			if err != nil {
				return nil, err
			}
			return append(typed, child), nil
		}
		idx, ok := seg.Index()
		if !ok {
			return nil, fmt.Errorf("pointer: key %q used on an array", seg.key)
		}
		if insert && len(segs) == 1 {
			if idx > len(typed) {
				typed = padSlice(typed, idx)
			}
			return slices.Insert(typed, idx, value), nil
		}
		if idx >= len(typed) {
			typed = padSlice(typed, idx+1)
		}
		child, err := set(typed[idx], segs[1:], value, insert)
		if err != nil {
			return nil, err
		}
		typed[idx] = child
		return typed, nil
	default:
		return nil, fmt.Errorf("%w: %T at %q", ErrNotObject, node, seg.key)
	}
}

func containerFor(seg Segment) any {
	if seg.wildcard {
		return []any{}
	}
	if _, ok := seg.Index(); ok {
		return []any{}
	}
	return map[string]any{}
}

func padSlice(s []any, n int) []any {
	for len(s) < n {
		s = append(s, nil)
	}
	return s
}

// Remove deletes the key or array element addressed by p. A placeholder on
// a slice removes its last element. Removing the root yields nil.
func Remove(obj any, p Pointer) (any, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return remove(obj, p)
}

func remove(node any, segs Pointer) (any, error) {
	seg := segs[0]
	last := len(segs) == 1
	switch typed := node.(type) {
	case map[string]any:
		if last {
			if _, ok := typed[seg.key]; !ok {
				return nil, fmt.Errorf("pointer: key %q not found", seg.key)
			}
			delete(typed, seg.key)
			return typed, nil
		}
		child, ok := typed[seg.key]
		if !ok {
			return nil, fmt.Errorf("pointer: key %q not found", seg.key)
		}
		updated, err := remove(child, segs[1:])
		if err != nil {
			return nil, err
		}
		typed[seg.key] = updated
		return typed, nil
	case []any:
		idx, ok := sliceIndex(typed, seg)
		if !ok || idx >= len(typed) {
			return nil, fmt.Errorf("pointer: index %q out of range", seg.key)
		}
		if last {
			return slices.Delete(typed, idx, idx+1), nil
		}
		updated, err := remove(typed[idx], segs[1:])
		if err != nil {
			return nil, err
		}
		typed[idx] = updated
		return typed, nil
	default:
		return nil, fmt.Errorf("%w: %T at %q", ErrNotObject, node, seg.key)
	}
}

func sliceIndex(s []any, seg Segment) (int, bool) {
	if seg.wildcard || seg.key == Placeholder {
		if len(s) == 0 {
			return 0, false
		}
		return len(s) - 1, true
	}
	return seg.Index()
}
