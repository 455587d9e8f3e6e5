package form

import (
	"github.com/goliatone/go-jsonform/pkg/control"
	"github.com/goliatone/go-jsonform/pkg/layout"
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
	"github.com/goliatone/go-jsonform/pkg/values"
	"github.com/goliatone/go-jsonform/pkg/widgets"
)

// AddItem activates the add node of ctx: it appends a new list item to an
// array, or fills an empty recursive slot. name selects another library
// fragment than the node's own reference and is usually empty. Nothing
// changes when it reports false. Subscribers are notified once.
func (f *Form) AddItem(ctx Context, name string) bool {
	node := ctx.LayoutNode
	if !node.IsAddButton() || !f.begin() {
		return false
	}
	defer f.end()

	key := node.Ref
	if name != "" {
		p, err := pointer.ParseObjectPath(name)
		if err != nil {
			f.logger.Warn("form: add item: invalid fragment name", "name", name, "error", err)
			return false
		}
		key = p
	}
	at, ok := f.locate(ctx)
	if !ok {
		f.logger.Debug("form: add item: node not in layout", "node", node.ID)
		return false
	}
	target, _ := f.GetDataPointer(ctx)
	last, ok := target.Last()
	parent := target.Parent()
	if !ok || parent.IsGeneric() {
		return false
	}
	owner, ok := f.tree.Get(parent)
	if !ok {
		return false
	}
	tmpl, ok := f.compile.Library.Instantiate(key)
	if !ok {
		f.logger.Warn("form: add item: no template fragment", "key", key.String())
		return false
	}
	clone, ok := f.fragments.Clone(key, node.DataPointer, node.LayoutPointer)
	if !ok {
		f.logger.Warn("form: add item: no layout fragment", "key", key.String())
		return false
	}

	var mutate func() bool
	switch owner.Kind() {
	case schema.KindArray:
		if !f.bounds(parent).CanAdd(owner.Len()) {
			return false
		}
		markItem(clone, true)
		mutate = func() bool { return f.tree.Push(parent, control.NewControl(tmpl)) }
	case schema.KindGroup:
		if _, exists := owner.Child(last.Key()); exists {
			return false
		}
		markItem(clone, false)
		mutate = func() bool { return f.tree.AddControl(parent, last.Key(), control.NewControl(tmpl)) }
	default:
		return false
	}

	if !f.layout.Insert(at, clone) {
		return false
	}
	f.reassign()
	if !mutate() {
		f.layout.Remove(at)
		f.reassign()
		return false
	}
	return true
}

// RemoveItem deletes the list item or recursive instance of ctx. Tuple
// items and items that would break minItems are kept. Nothing changes when
// it reports false. Subscribers are notified once.
func (f *Form) RemoveItem(ctx Context) bool {
	node := ctx.LayoutNode
	if node == nil || node.IsAddButton() || node.ArrayItemType == layout.ItemTuple {
		return false
	}
	if !node.ArrayItem && !node.RecursiveReference {
		return false
	}
	if !f.begin() {
		return false
	}
	defer f.end()

	target, ok := f.concreteData(ctx)
	if !ok {
		return false
	}
	at, ok := f.locate(ctx)
	if !ok {
		return false
	}
	last, ok := target.Last()
	parent := target.Parent()
	if !ok {
		return false
	}
	owner, ok := f.tree.Get(parent)
	if !ok {
		return false
	}

	var mutate func() bool
	switch owner.Kind() {
	case schema.KindArray:
		idx, ok := last.Index()
		b := f.bounds(parent)
		if !ok || idx < b.TupleItems || idx >= owner.Len() || owner.Len() <= b.MinItems {
			return false
		}
		mutate = func() bool { return f.tree.RemoveAt(parent, idx) }
	case schema.KindGroup:
		if _, exists := owner.Child(last.Key()); !exists {
			return false
		}
		mutate = func() bool { return f.tree.RemoveControl(parent, last.Key()) }
	default:
		return false
	}

	removed, ok := f.layout.Remove(at)
	if !ok {
		return false
	}
	f.reassign()
	if !mutate() {
		f.layout.Insert(at, removed)
		f.reassign()
		return false
	}
	return true
}

// MoveArrayItem moves the list item at from to to, in the live array and in
// the layout alike. ctx is the array node or one of its items. Subscribers
// are notified once.
func (f *Form) MoveArrayItem(ctx Context, from, to int) bool {
	node := ctx.LayoutNode
	if node == nil || !f.begin() {
		return false
	}
	defer f.end()

	at, ok := f.locate(ctx)
	target, hasData := f.GetDataPointer(ctx)
	if !ok || !hasData {
		return false
	}
	if node.ArrayItem {
		if len(at) < 3 || target.IsRoot() {
			return false
		}
		at, target = at[:len(at)-2], target.Parent()
	}
	if target.IsGeneric() {
		return false
	}
	arrNode, found := f.layout.Get(at)
	arr, exists := f.tree.Get(target)
	if !found || !exists || arr.Kind() != schema.KindArray || arrNode.Widget.Kind != widgets.KindArray {
		return false
	}
	n := arr.Len()
	tuple := f.bounds(target).TupleItems
	if from < tuple || to < tuple || from >= n || to >= n || n > len(arrNode.Items) {
		return false
	}
	if from == to {
		return true
	}
	if arrNode.Items[from].IsAddButton() || arrNode.Items[to].IsAddButton() {
		return false
	}
	moveNode(arrNode.Items, from, to)
	f.reassign()
	if !f.tree.Move(target, from, to) {
		moveNode(arrNode.Items, to, from)
		f.reassign()
		return false
	}
	return true
}

// CheckboxItem is one entry of a checkbox list, in display order.
type CheckboxItem struct {
	Value   any  `json:"value"`
	Checked bool `json:"checked"`
}

// UpdateArrayCheckboxList replaces the array edited by a checkboxes node
// with the checked values, in list order and without duplicates.
// Subscribers are notified once.
func (f *Form) UpdateArrayCheckboxList(ctx Context, list []CheckboxItem) bool {
	node := ctx.LayoutNode
	if node == nil || !f.begin() {
		return false
	}
	defer f.end()

	target, ok := f.concreteData(ctx)
	if !ok {
		return false
	}
	arr, ok := f.tree.Get(target)
	if !ok || arr.Kind() != schema.KindArray {
		return false
	}
	generic := pointer.ToGeneric(target, f.compile.ArrayMap).AppendAny()
	var checked []any
	for _, item := range list {
		if item.Checked && !values.InArray(item.Value, checked) {
			checked = append(checked, item.Value)
		}
	}
	if limit := f.bounds(target).MaxItems; len(checked) > limit {
		return false
	}
	items := make([]*control.Control, 0, len(checked))
	for _, v := range checked {
		tmpl, ok := f.compile.Library.Instantiate(f.compile.Shorten(generic))
		if !ok {
			tmpl = &control.Template{Kind: schema.KindLeaf}
		}
		tmpl.Value = v
		items = append(items, control.NewControl(tmpl))
	}
	return f.tree.SetItems(target, items)
}

// reassign recomputes the layout pointers after a structural change.
func (f *Form) reassign() {
	layout.AssignPointers(f.layout, pointer.Root())
}

// markItem adapts a cloned fragment to the slot it is inserted in. A
// recursive fragment registered for an object slot may be added to an
// array and the other way round.
func markItem(n *layout.Node, inArray bool) {
	if inArray {
		n.ArrayItem = true
		n.ArrayItemType = layout.ItemList
		if _, ok := n.Option("removable"); !ok {
			if n.Options == nil {
				n.Options = map[string]any{}
			}
			n.Options["removable"] = true
		}
		return
	}
	n.ArrayItem = false
	n.ArrayItemType = ""
}

func moveNode(items []*layout.Node, from, to int) {
	n := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = n
}
