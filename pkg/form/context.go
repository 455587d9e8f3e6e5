package form

import (
	"github.com/goliatone/go-jsonform/pkg/control"
	"github.com/goliatone/go-jsonform/pkg/layout"
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
)

// Context identifies one rendered layout node. DataIndex holds one index per
// array level of the node's data pointer, outermost first. LayoutIndex holds
// one index per placeholder of the node's layout pointer. A widget that does
// not know an index leaves it out; operations that need it report false.
type Context struct {
	LayoutNode  *layout.Node
	FormID      string
	LayoutIndex []int
	DataIndex   []int
}

// GetDataPointer returns the node's data pointer made concrete with the
// context's data indices. Placeholders without an index are kept.
func (f *Form) GetDataPointer(ctx Context) (pointer.Pointer, bool) {
	if ctx.LayoutNode == nil || !ctx.LayoutNode.Bound() {
		return nil, false
	}
	return f.indexed(ctx.LayoutNode.DataPointer, ctx.DataIndex), true
}

// indexed fills the array levels of a generic data pointer with indices, in
// order. Levels inside recursive instances are found through the shortened
// pointer of their ancestor.
func (f *Form) indexed(generic pointer.Pointer, indices []int) pointer.Pointer {
	out := generic.Clone()
	next := 0
	for i := range out {
		if next >= len(indices) {
			break
		}
		if !f.isArray(generic[:i]) {
			continue
		}
		if out[i].IsWildcard() {
			out[i] = pointer.Index(indices[next])
		}
		next++
	}
	return out
}

func (f *Form) isArray(generic pointer.Pointer) bool {
	arrays := f.compile.ArrayMap
	return arrays.Has(generic) || arrays.Has(f.compile.Shorten(generic))
}

// tupleCount returns the tuple count of the array at an indexed pointer.
func (f *Form) tupleCount(p pointer.Pointer) int {
	generic := pointer.ToGeneric(p, f.compile.ArrayMap)
	if n, ok := f.compile.ArrayMap.TupleCount(generic); ok {
		return n
	}
	n, _ := f.compile.ArrayMap.TupleCount(f.compile.Shorten(generic))
	return n
}

// GetLayoutPointer returns the node's layout pointer made concrete with the
// context's layout indices.
func (f *Form) GetLayoutPointer(ctx Context) (pointer.Pointer, bool) {
	if ctx.LayoutNode == nil || ctx.LayoutNode.LayoutPointer == nil {
		return nil, false
	}
	return pointer.ToIndexed(ctx.LayoutNode.LayoutPointer, ctx.LayoutIndex, nil), true
}

// IsControlBound reports whether the node edits a live control.
func (f *Form) IsControlBound(ctx Context) bool {
	if ctx.LayoutNode.IsAddButton() {
		return false
	}
	_, ok := f.GetControl(ctx)
	return ok
}

// GetControl returns the live control the node edits.
func (f *Form) GetControl(ctx Context) (*control.Control, bool) {
	p, ok := f.concreteData(ctx)
	if !ok {
		return nil, false
	}
	return f.tree.Get(p)
}

// GetControlValue returns the raw value of the node's control.
func (f *Form) GetControlValue(ctx Context) (any, bool) {
	c, ok := f.GetControl(ctx)
	if !ok {
		return nil, false
	}
	return c.Value(), true
}

// GetControlGroup returns the group or array holding the node's control.
func (f *Form) GetControlGroup(ctx Context) (*control.Control, bool) {
	p, ok := f.concreteData(ctx)
	if !ok || p.IsRoot() {
		return nil, false
	}
	return f.tree.Get(p.Parent())
}

// GetControlName returns the property name or index the node's control is
// stored under.
func (f *Form) GetControlName(ctx Context) string {
	p, ok := f.GetDataPointer(ctx)
	if !ok {
		return ""
	}
	last, ok := p.Last()
	if !ok {
		return ""
	}
	return last.Key()
}

// InitializeControl returns the node's control after applying the node's
// readonly flag to it. It does not notify subscribers.
func (f *Form) InitializeControl(ctx Context) (*control.Control, bool) {
	p, ok := f.concreteData(ctx)
	if !ok {
		return nil, false
	}
	c, ok := f.tree.Get(p)
	if !ok {
		f.logger.Debug("form: no control for node", "node", ctx.LayoutNode.ID, "pointer", p.String())
		return nil, false
	}
	if ctx.LayoutNode.BoolOption("readonly") && !c.Disabled() {
		f.tree.Silently(func() { f.tree.SetDisabled(p, true) })
	}
	return c, true
}

// UpdateValue writes a leaf value. Subscribers are notified once.
func (f *Form) UpdateValue(ctx Context, value any) bool {
	p, ok := f.concreteData(ctx)
	if !ok || f.state != StateActive {
		return false
	}
	return f.tree.SetValue(p, value)
}

// concreteData returns the node's data pointer when every placeholder was
// resolved by the context.
func (f *Form) concreteData(ctx Context) (pointer.Pointer, bool) {
	p, ok := f.GetDataPointer(ctx)
	if !ok || p.IsGeneric() {
		return nil, false
	}
	return p, true
}

// entry returns the Data Map entry describing an indexed data pointer.
func (f *Form) entry(p pointer.Pointer) (*schema.Entry, bool) {
	e, _, ok := f.compile.DataMap.Lookup(p, f.compile.DataRecursiveRefMap, f.compile.ArrayMap)
	return e, ok
}

// bounds returns the item counts of the array at an indexed data pointer.
func (f *Form) bounds(p pointer.Pointer) schema.ArrayBounds {
	if e, ok := f.entry(p); ok && e.Bounds != nil {
		return *e.Bounds
	}
	return schema.ArrayBounds{MaxItems: schema.DefaultMaxItems, HasList: true}
}

// locate returns the concrete layout pointer of the context node. List
// items and add nodes end in a placeholder, so they are found among their
// parent's items by ID.
func (f *Form) locate(ctx Context) (pointer.Pointer, bool) {
	node := ctx.LayoutNode
	if node == nil || node.LayoutPointer == nil {
		return nil, false
	}
	p := pointer.ToIndexed(node.LayoutPointer, ctx.LayoutIndex, nil)
	if !p.IsGeneric() {
		if found, ok := f.layout.Get(p); ok && found.ID == node.ID {
			return p, true
		}
	}
	var siblings []*layout.Node
	var parent pointer.Pointer
	if len(p) == 1 {
		siblings = f.layout
	} else {
		parent = p[:len(p)-2]
		if parent.IsGeneric() {
			return nil, false
		}
		owner, ok := f.layout.Get(parent)
		if !ok {
			return nil, false
		}
		siblings = owner.Items
	}
	for i, n := range siblings {
		if n.ID != node.ID {
			continue
		}
		if parent == nil {
			return pointer.Pointer{pointer.Index(i)}, true
		}
		return parent.Append("items").AppendIndex(i), true
	}
	return nil, false
}
