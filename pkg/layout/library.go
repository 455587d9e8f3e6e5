package layout

import (
	"sort"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

// Library stores the layout fragment to clone when a list item or a
// recursive group is added. Keys match the control template library.
type Library struct {
	entries map[string]*Node
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{entries: map[string]*Node{}}
}

// Has reports whether a fragment is registered or being built at p.
func (l *Library) Has(p pointer.Pointer) bool {
	if l == nil {
		return false
	}
	_, ok := l.entries[p.String()]
	return ok
}

// Get returns the registered fragment without copying it.
func (l *Library) Get(p pointer.Pointer) (*Node, bool) {
	if l == nil {
		return nil, false
	}
	n, ok := l.entries[p.String()]
	return n, ok && n != nil
}

// Keys lists the registered pointers.
func (l *Library) Keys() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.entries))
	for k, n := range l.entries {
		if n != nil {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Clone copies the fragment at key for insertion at the given generic data
// and layout pointers. Every node gets a fresh ID. Pointers are re-rooted
// only when the fragment was registered under a different root, which is
// the case for recursive fragments; list item fragments already address
// the list slot.
func (l *Library) Clone(key, data, layout pointer.Pointer) (*Node, bool) {
	fragment, ok := l.Get(key)
	if !ok {
		return nil, false
	}
	out := fragment.Clone()
	FreshIDs(out)
	fromData, fromLayout := fragment.DataPointer, fragment.LayoutPointer
	out.Walk(func(n *Node) bool {
		if n.bound && fromData != nil && !fromData.Equal(data) {
			if rebased, ok := pointer.Rebase(n.DataPointer, fromData, data); ok {
				n.DataPointer = rebased
			}
		}
		if fromLayout != nil && !fromLayout.Equal(layout) {
			if rebased, ok := pointer.Rebase(n.LayoutPointer, fromLayout, layout); ok {
				n.LayoutPointer = rebased
			}
		}
		return true
	})
	return out, true
}

func (l *Library) reserve(p pointer.Pointer) {
	if l.entries == nil {
		l.entries = map[string]*Node{}
	}
	l.entries[p.String()] = nil
}

func (l *Library) store(p pointer.Pointer, n *Node) {
	if n == nil {
		delete(l.entries, p.String())
		return
	}
	l.entries[p.String()] = n
}
