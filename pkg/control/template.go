// Package control builds control templates from a compiled schema and turns
// them into live Control Trees.
//
// A Template is the static description of a form's controls: groups for
// objects with properties, arrays for schemas with items and leaves for
// everything else. Build walks the schema once, registers every data location
// in the Data Map and stores the repeatable fragments (list items and
// recursive groups) in a Library so new items can be instantiated later.
package control

import (
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
	"github.com/goliatone/go-jsonform/pkg/values"
)

// Template describes one control and its children.
type Template struct {
	Kind schema.Kind `json:"kind"`
	// Pointer is the generic data pointer the template was built for.
	Pointer     pointer.Pointer      `json:"pointer"`
	Value       any                  `json:"value,omitempty"`
	Disabled    bool                 `json:"disabled,omitempty"`
	Constraints map[string][]any     `json:"constraints,omitempty"`
	Controls    map[string]*Template `json:"controls,omitempty"`
	Order       []string             `json:"order,omitempty"`
	Items       []*Template          `json:"items,omitempty"`
}

// Clone returns a deep copy.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{
		Kind:     t.Kind,
		Pointer:  t.Pointer.Clone(),
		Value:    values.Clone(t.Value),
		Disabled: t.Disabled,
	}
	if t.Constraints != nil {
		out.Constraints = make(map[string][]any, len(t.Constraints))
		for k, v := range t.Constraints {
			args, _ := values.Clone(v).([]any)
			out.Constraints[k] = args
		}
	}
	if t.Controls != nil {
		out.Controls = make(map[string]*Template, len(t.Controls))
		for k, child := range t.Controls {
			out.Controls[k] = child.Clone()
		}
	}
	out.Order = append([]string(nil), t.Order...)
	if t.Items != nil {
		out.Items = make([]*Template, len(t.Items))
		for i, item := range t.Items {
			out.Items[i] = item.Clone()
		}
	}
	return out
}

// Library stores the template to clone when a list item or a recursive
// group is added. Keys are generic data pointers, shortened through the
// recursive reference map.
type Library struct {
	entries map[string]*Template
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{entries: map[string]*Template{}}
}

// Has reports whether a fragment is registered at p, even one still being
// built.
func (l *Library) Has(p pointer.Pointer) bool {
	if l == nil {
		return false
	}
	_, ok := l.entries[p.String()]
	return ok
}

// Get returns the registered fragment without copying it.
func (l *Library) Get(p pointer.Pointer) (*Template, bool) {
	if l == nil {
		return nil, false
	}
	t, ok := l.entries[p.String()]
	return t, ok && t != nil
}

// Instantiate returns a fresh copy of the fragment at p.
func (l *Library) Instantiate(p pointer.Pointer) (*Template, bool) {
	t, ok := l.Get(p)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Keys lists the registered pointers.
func (l *Library) Keys() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.entries))
	for k, t := range l.entries {
		if t != nil {
			out = append(out, k)
		}
	}
	return sortStrings(out)
}

func (l *Library) reserve(p pointer.Pointer) {
	if l.entries == nil {
		l.entries = map[string]*Template{}
	}
	l.entries[p.String()] = nil
}

func (l *Library) store(p pointer.Pointer, t *Template) {
	if t == nil {
		delete(l.entries, p.String())
		return
	}
	l.entries[p.String()] = t
}
