package pointer

// ArrayMap records, for each array's generic data pointer, how many leading
// positions are fixed tuple slots. Positions at or beyond the count are list
// items sharing one schema.
type ArrayMap map[string]int

// TupleCount returns the tuple count recorded for the array at p.
func (m ArrayMap) TupleCount(p Pointer) (int, bool) {
	if m == nil {
		return 0, false
	}
	n, ok := m[p.String()]
	return n, ok
}

// Has reports whether p is a known array.
func (m ArrayMap) Has(p Pointer) bool {
	_, ok := m.TupleCount(p)
	return ok
}

// SetIfAbsent records n for p unless an entry exists.
func (m ArrayMap) SetIfAbsent(p Pointer, n int) {
	if m == nil {
		return
	}
	if _, ok := m[p.String()]; !ok {
		m[p.String()] = n
	}
}

// ToIndexed turns a generic pointer into an indexed one.
//
// Without an array map the placeholders are replaced by indices in order.
// With a map, every segment whose parent is a known array consumes one index:
// a placeholder takes the index, a tuple literal keeps its own value. Other
// uses of "-" are left alone. Missing indices leave placeholders in place.
func ToIndexed(generic Pointer, indices []int, arrays ArrayMap) Pointer {
	out := generic.Clone()
	next := 0
	if arrays == nil {
		for i, seg := range out {
			if seg.wildcard && next < len(indices) {
				out[i] = Index(indices[next])
				next++
			}
		}
		return out
	}
	for i := range out {
		if !arrays.Has(generic[:i]) {
			continue
		}
		if next >= len(indices) {
			break
		}
		if out[i].wildcard {
			out[i] = Index(indices[next])
		}
		next++
	}
	return out
}

// ToGeneric replaces each index at or beyond its array's tuple count with the
// placeholder. Tuple indices are kept verbatim.
func ToGeneric(indexed Pointer, arrays ArrayMap) Pointer {
	out := indexed.Clone()
	for i := range out {
		n, ok := arrays.TupleCount(out[:i])
		if !ok {
			continue
		}
		if idx, isIndex := out[i].Index(); isIndex && idx >= n {
			out[i] = AnyIndex()
		}
	}
	return out
}

// Indices extracts the index consumed at every array level of an indexed
// pointer, in the shape ToIndexed expects.
func Indices(indexed Pointer, arrays ArrayMap) []int {
	var out []int
	generic := ToGeneric(indexed, arrays)
	for i := range indexed {
		if !arrays.Has(generic[:i]) {
			continue
		}
		if idx, ok := indexed[i].Index(); ok {
			out = append(out, idx)
		}
	}
	return out
}
