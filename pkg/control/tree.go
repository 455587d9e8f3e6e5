package control

import (
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
	"github.com/goliatone/go-jsonform/pkg/values"
)

// Control is one live node of a Control Tree.
type Control struct {
	kind        schema.Kind
	value       any
	controls    map[string]*Control
	order       []string
	items       []*Control
	constraints map[string][]any
	validators  []Validator
	errors      []*ValidationError
	disabled    bool
	dirty       bool
	parent      *Control
}

// NewControl instantiates a template. A nil template yields nil.
func NewControl(t *Template) *Control {
	if t == nil {
		return nil
	}
	c := &Control{
		kind:        t.Kind,
		disabled:    t.Disabled,
		constraints: t.Constraints,
		validators:  Validators(t.Constraints),
	}
	switch t.Kind {
	case schema.KindGroup:
		c.controls = map[string]*Control{}
		for _, key := range t.Order {
			if child := NewControl(t.Controls[key]); child != nil {
				child.parent = c
				c.controls[key] = child
				c.order = append(c.order, key)
			}
		}
	case schema.KindArray:
		for _, item := range t.Items {
			if child := NewControl(item); child != nil {
				child.parent = c
				c.items = append(c.items, child)
			}
		}
	default:
		c.value = values.Clone(t.Value)
	}
	c.validate()
	return c
}

// Kind reports the node kind.
func (c *Control) Kind() schema.Kind { return c.kind }

// Value returns the current value: an object for groups, a list for arrays.
func (c *Control) Value() any {
	switch c.kind {
	case schema.KindGroup:
		out := make(map[string]any, len(c.controls))
		for _, key := range c.order {
			out[key] = c.controls[key].Value()
		}
		return out
	case schema.KindArray:
		out := make([]any, len(c.items))
		for i, item := range c.items {
			out[i] = item.Value()
		}
		return out
	}
	return values.Clone(c.value)
}

// Keys lists a group's child names in display order.
func (c *Control) Keys() []string { return append([]string(nil), c.order...) }

// Child returns a group's child.
func (c *Control) Child(key string) (*Control, bool) {
	child, ok := c.controls[key]
	return child, ok
}

// Len returns the number of array items.
func (c *Control) Len() int { return len(c.items) }

// Item returns the array item at i.
func (c *Control) Item(i int) (*Control, bool) {
	if i < 0 || i >= len(c.items) {
		return nil, false
	}
	return c.items[i], true
}

// Constraints returns the constraint set the control validates against.
func (c *Control) Constraints() map[string][]any { return c.constraints }

// Dirty reports whether the value was changed since construction or the
// last reset.
func (c *Control) Dirty() bool { return c.dirty }

// Disabled reports whether the control or an ancestor is disabled.
func (c *Control) Disabled() bool {
	for n := c; n != nil; n = n.parent {
		if n.disabled {
			return true
		}
	}
	return false
}

// Errors returns the control's own failed constraints.
func (c *Control) Errors() []*ValidationError { return c.errors }

// Valid reports whether the control and all enabled descendants pass.
func (c *Control) Valid() bool {
	if c.disabled {
		return true
	}
	if len(c.errors) > 0 {
		return false
	}
	for _, key := range c.order {
		if !c.controls[key].Valid() {
			return false
		}
	}
	for _, item := range c.items {
		if !item.Valid() {
			return false
		}
	}
	return true
}

func (c *Control) validate() {
	c.errors = nil
	if c.disabled || len(c.validators) == 0 {
		return
	}
	v := c.Value()
	for _, check := range c.validators {
		if err := check(v); err != nil {
			c.errors = append(c.errors, err)
		}
	}
}

// revalidate re-runs validators from c up to the root, since container
// values include c's value.
func (c *Control) revalidate() {
	for n := c; n != nil; n = n.parent {
		n.validate()
	}
}

func (c *Control) markDirty() {
	for n := c; n != nil; n = n.parent {
		n.dirty = true
	}
}

// Op names a structural or value change.
type Op string

const (
	OpSetValue   Op = "set"
	OpPush       Op = "push"
	OpInsert     Op = "insert"
	OpRemove     Op = "remove"
	OpMove       Op = "move"
	OpAddControl Op = "add-control"
	OpDelControl Op = "remove-control"
	OpReset      Op = "reset"
	OpRevalidate Op = "revalidate"
)

// Change is delivered to subscribers after every state changing call.
type Change struct {
	Op      Op
	Pointer pointer.Pointer
	// Value is a snapshot of the whole tree value after the change.
	Value any
}

// Tree is a live Control Tree. It is not safe for concurrent use; callers
// serialize access.
type Tree struct {
	root      *Control
	listeners map[int]func(Change)
	order     []int
	nextID    int
	silent    bool
}

// NewTree instantiates a template as a live tree.
func NewTree(t *Template) *Tree {
	root := NewControl(t)
	if root == nil {
		root = &Control{kind: schema.KindGroup, controls: map[string]*Control{}}
	}
	return &Tree{root: root, listeners: map[int]func(Change){}}
}

// Root returns the root control.
func (t *Tree) Root() *Control { return t.root }

// Value returns a snapshot of the tree value.
func (t *Tree) Value() any { return t.root.Value() }

// Dirty reports whether any control changed.
func (t *Tree) Dirty() bool { return t.root.dirty }

// Valid reports whether every enabled control passes its validators.
func (t *Tree) Valid() bool { return t.root.Valid() }

// Get returns the control at an indexed data pointer. "-" addresses the last
// array item.
func (t *Tree) Get(p pointer.Pointer) (*Control, bool) {
	c := t.root
	for _, seg := range p {
		switch c.kind {
		case schema.KindGroup:
			child, ok := c.controls[seg.Key()]
			if !ok {
				return nil, false
			}
			c = child
		case schema.KindArray:
			i, ok := seg.Index()
			if seg.IsWildcard() {
				i, ok = len(c.items)-1, len(c.items) > 0
			}
			if !ok || i < 0 || i >= len(c.items) {
				return nil, false
			}
			c = c.items[i]
		default:
			return nil, false
		}
	}
	return c, true
}

// Errors collects the failed constraints of every enabled control, keyed by
// data pointer.
func (t *Tree) Errors() map[string][]*ValidationError {
	out := map[string][]*ValidationError{}
	var walk func(c *Control, p pointer.Pointer)
	walk = func(c *Control, p pointer.Pointer) {
		if c.disabled {
			return
		}
		if len(c.errors) > 0 {
			out[p.String()] = c.errors
		}
		for _, key := range c.order {
			walk(c.controls[key], p.Append(key))
		}
		for i, item := range c.items {
			walk(item, p.AppendIndex(i))
		}
	}
	walk(t.root, pointer.Root())
	return out
}

// Subscribe registers fn for change notifications, delivered in order of
// subscription. The returned func unsubscribes.
func (t *Tree) Subscribe(fn func(Change)) (cancel func()) {
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.order = append(t.order, id)
	return func() {
		if _, ok := t.listeners[id]; !ok {
			return
		}
		delete(t.listeners, id)
		for i, other := range t.order {
			if other == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
}

// Silently runs fn without emitting notifications.
func (t *Tree) Silently(fn func()) {
	prev := t.silent
	t.silent = true
	defer func() { t.silent = prev }()
	fn()
}

func (t *Tree) emit(op Op, p pointer.Pointer) {
	if t.silent || len(t.order) == 0 {
		return
	}
	change := Change{Op: op, Pointer: p.Clone(), Value: t.Value()}
	for _, id := range append([]int(nil), t.order...) {
		if fn, ok := t.listeners[id]; ok {
			fn(change)
		}
	}
}

// SetValue writes a leaf value. It reports false when p is not a leaf.
func (t *Tree) SetValue(p pointer.Pointer, v any) bool {
	c, ok := t.Get(p)
	if !ok || c.kind == schema.KindGroup || c.kind == schema.KindArray {
		return false
	}
	c.value = values.Clone(v)
	c.markDirty()
	c.revalidate()
	t.emit(OpSetValue, p)
	return true
}

// SetItems replaces every item of the array at p.
func (t *Tree) SetItems(p pointer.Pointer, items []*Control) bool {
	arr, ok := t.array(p)
	if !ok {
		return false
	}
	for _, item := range items {
		if item == nil {
			return false
		}
	}
	for _, item := range items {
		item.parent = arr
	}
	arr.items = items
	arr.markDirty()
	arr.revalidate()
	t.emit(OpSetValue, p)
	return true
}

// Push appends an item to the array at p.
func (t *Tree) Push(p pointer.Pointer, item *Control) bool {
	arr, ok := t.array(p)
	if !ok || item == nil {
		return false
	}
	return t.insertAt(arr, p, len(arr.items), item, OpPush)
}

// Insert places an item at index i of the array at p.
func (t *Tree) Insert(p pointer.Pointer, i int, item *Control) bool {
	arr, ok := t.array(p)
	if !ok || item == nil || i < 0 || i > len(arr.items) {
		return false
	}
	return t.insertAt(arr, p, i, item, OpInsert)
}

func (t *Tree) insertAt(arr *Control, p pointer.Pointer, i int, item *Control, op Op) bool {
	item.parent = arr
	arr.items = append(arr.items, nil)
	copy(arr.items[i+1:], arr.items[i:])
	arr.items[i] = item
	arr.markDirty()
	arr.revalidate()
	t.emit(op, p.AppendIndex(i))
	return true
}

// RemoveAt deletes the item at index i of the array at p.
func (t *Tree) RemoveAt(p pointer.Pointer, i int) bool {
	arr, ok := t.array(p)
	if !ok || i < 0 || i >= len(arr.items) {
		return false
	}
	arr.items = append(arr.items[:i], arr.items[i+1:]...)
	arr.markDirty()
	arr.revalidate()
	t.emit(OpRemove, p.AppendIndex(i))
	return true
}

// Move relocates the array item at from to to, shifting the items between.
func (t *Tree) Move(p pointer.Pointer, from, to int) bool {
	arr, ok := t.array(p)
	n := 0
	if ok {
		n = len(arr.items)
	}
	if !ok || from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	item := arr.items[from]
	arr.items = append(arr.items[:from], arr.items[from+1:]...)
	arr.items = append(arr.items, nil)
	copy(arr.items[to+1:], arr.items[to:])
	arr.items[to] = item
	arr.markDirty()
	arr.revalidate()
	t.emit(OpMove, p)
	return true
}

// AddControl adds a named child to the group at p, replacing any existing
// child with that name.
func (t *Tree) AddControl(p pointer.Pointer, name string, child *Control) bool {
	group, ok := t.Get(p)
	if !ok || group.kind != schema.KindGroup || child == nil {
		return false
	}
	if _, exists := group.controls[name]; !exists {
		group.order = append(group.order, name)
	}
	child.parent = group
	group.controls[name] = child
	group.markDirty()
	group.revalidate()
	t.emit(OpAddControl, p.Append(name))
	return true
}

// RemoveControl deletes a named child from the group at p.
func (t *Tree) RemoveControl(p pointer.Pointer, name string) bool {
	group, ok := t.Get(p)
	if !ok || group.kind != schema.KindGroup {
		return false
	}
	if _, exists := group.controls[name]; !exists {
		return false
	}
	delete(group.controls, name)
	for i, key := range group.order {
		if key == name {
			group.order = append(group.order[:i], group.order[i+1:]...)
			break
		}
	}
	group.markDirty()
	group.revalidate()
	t.emit(OpDelControl, p.Append(name))
	return true
}

// SetDisabled toggles the disabled flag of the control at p.
func (t *Tree) SetDisabled(p pointer.Pointer, disabled bool) bool {
	c, ok := t.Get(p)
	if !ok {
		return false
	}
	c.disabled = disabled
	c.revalidate()
	t.emit(OpRevalidate, p)
	return true
}

// Revalidate re-runs every validator and notifies subscribers once.
func (t *Tree) Revalidate() {
	var walk func(c *Control)
	walk = func(c *Control) {
		for _, key := range c.order {
			walk(c.controls[key])
		}
		for _, item := range c.items {
			walk(item)
		}
		c.validate()
	}
	walk(t.root)
	t.emit(OpRevalidate, pointer.Root())
}

// Reset replaces the whole tree with a fresh instance of tmpl.
func (t *Tree) Reset(tmpl *Template) {
	root := NewControl(tmpl)
	if root == nil {
		root = &Control{kind: schema.KindGroup, controls: map[string]*Control{}}
	}
	t.root = root
	t.emit(OpReset, pointer.Root())
}

func (t *Tree) array(p pointer.Pointer) (*Control, bool) {
	c, ok := t.Get(p)
	if !ok || c.kind != schema.KindArray {
		return nil, false
	}
	return c, true
}
