// Package layout builds the UI layout tree of a form, either from an explicit
// layout description or synthesized from the compiled schema.
package layout

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/values"
	"github.com/goliatone/go-jsonform/pkg/widgets"
)

// Array item roles.
const (
	ItemTuple = "tuple"
	ItemList  = "list"
)

// Node is one layout tree node. Data pointers are generic: list items keep
// the "-" placeholder and are made concrete with the data indices of the
// rendering context.
type Node struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name,omitempty"`
	Type          string          `json:"type"`
	DataType      string          `json:"dataType,omitempty"`
	DataPointer   pointer.Pointer `json:"dataPointer,omitempty"`
	LayoutPointer pointer.Pointer `json:"layoutPointer,omitempty"`
	// Ref is the library key an add node instantiates.
	Ref                pointer.Pointer `json:"$ref,omitempty"`
	RecursiveReference bool            `json:"recursiveReference,omitempty"`
	ArrayItem          bool            `json:"arrayItem,omitempty"`
	ArrayItemType      string          `json:"arrayItemType,omitempty"`
	Options            map[string]any  `json:"options,omitempty"`
	Items              []*Node         `json:"items,omitempty"`
	Widget             widgets.Widget  `json:"widget"`

	bound bool
}

// Bound reports whether the node carries a data pointer.
func (n *Node) Bound() bool { return n != nil && n.bound }

// IsAddButton reports whether the node is the synthetic add action of an
// array or recursive slot.
func (n *Node) IsAddButton() bool { return n != nil && n.Type == widgets.WidgetRef && n.Ref != nil }

// Option returns an option value.
func (n *Node) Option(key string) (any, bool) {
	if n == nil || n.Options == nil {
		return nil, false
	}
	v, ok := n.Options[key]
	return v, ok
}

// StringOption returns a string option or "".
func (n *Node) StringOption(key string) string {
	v, _ := n.Option(key)
	s, _ := v.(string)
	return s
}

// BoolOption returns a boolean option or false.
func (n *Node) BoolOption(key string) bool {
	v, _ := n.Option(key)
	b, _ := v.(bool)
	return b
}

// Label returns the node title, falling back to its title-cased name.
func (n *Node) Label() string {
	if title := n.StringOption("title"); title != "" {
		return title
	}
	return DefaultLabel(n.Name)
}

// Clone deep copies the node. IDs are kept.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.DataPointer = clonePointer(n.DataPointer)
	out.LayoutPointer = clonePointer(n.LayoutPointer)
	out.Ref = clonePointer(n.Ref)
	if n.Options != nil {
		out.Options, _ = values.Clone(n.Options).(map[string]any)
	}
	if n.Items != nil {
		out.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			out.Items[i] = item.Clone()
		}
	}
	return &out
}

func clonePointer(p pointer.Pointer) pointer.Pointer {
	if p == nil {
		return nil
	}
	return p.Clone()
}

// Walk visits n and its descendants depth first. Returning false skips the
// node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, item := range n.Items {
		item.Walk(fn)
	}
}

// Layout is the ordered list of top-level nodes.
type Layout []*Node

// Walk visits every node depth first.
func (l Layout) Walk(fn func(*Node) bool) {
	for _, n := range l {
		n.Walk(fn)
	}
}

// Get returns the node at an indexed layout pointer such as /1/items/0.
func (l Layout) Get(p pointer.Pointer) (*Node, bool) {
	items, idx, ok := l.locate(p)
	if !ok || idx >= len(items) {
		return nil, false
	}
	return items[idx], true
}

// Insert places node at the indexed layout pointer p, shifting later
// siblings. The index may equal the sibling count.
func (l *Layout) Insert(p pointer.Pointer, node *Node) bool {
	if len(p) == 1 {
		idx, ok := p[0].Index()
		if !ok || idx > len(*l) {
			return false
		}
		*l = insertNode(*l, idx, node)
		return true
	}
	parent, ok := l.Get(p[:len(p)-2])
	if !ok || p[len(p)-2].Key() != "items" {
		return false
	}
	idx, ok := p[len(p)-1].Index()
	if !ok || idx > len(parent.Items) {
		return false
	}
	parent.Items = insertNode(parent.Items, idx, node)
	return true
}

// Remove deletes the node at an indexed layout pointer.
func (l *Layout) Remove(p pointer.Pointer) (*Node, bool) {
	if len(p) == 1 {
		idx, ok := p[0].Index()
		if !ok || idx >= len(*l) {
			return nil, false
		}
		removed := (*l)[idx]
		*l = append((*l)[:idx], (*l)[idx+1:]...)
		return removed, true
	}
	parent, ok := l.Get(p[:len(p)-2])
	if !ok || p[len(p)-2].Key() != "items" {
		return nil, false
	}
	idx, ok := p[len(p)-1].Index()
	if !ok || idx >= len(parent.Items) {
		return nil, false
	}
	removed := parent.Items[idx]
	parent.Items = append(parent.Items[:idx], parent.Items[idx+1:]...)
	return removed, true
}

func (l Layout) locate(p pointer.Pointer) ([]*Node, int, bool) {
	if len(p) == 0 || len(p)%2 == 0 {
		return nil, 0, false
	}
	items := []*Node(l)
	for i := 0; ; i += 2 {
		idx, ok := p[i].Index()
		if !ok || idx < 0 || idx >= len(items) {
			if ok && i == len(p)-1 && idx == len(items) {
				return items, idx, true
			}
			return nil, 0, false
		}
		if i == len(p)-1 {
			return items, idx, true
		}
		if p[i+1].Key() != "items" {
			return nil, 0, false
		}
		items = items[idx].Items
	}
}

func insertNode(items []*Node, idx int, node *Node) []*Node {
	items = append(items, nil)
	copy(items[idx+1:], items[idx:])
	items[idx] = node
	return items
}

// AssignPointers sets the generic layout pointer of every node from its
// position. List items and the add action of an array share the "-"
// placeholder, since their index changes as items are added.
func AssignPointers(nodes []*Node, base pointer.Pointer) {
	assignPointers(nodes, base, false)
}

func assignPointers(nodes []*Node, base pointer.Pointer, inArray bool) {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		seg := pointer.Index(i)
		if n.ArrayItemType == ItemList || (inArray && n.IsAddButton()) {
			seg = pointer.AnyIndex()
		}
		if len(base) == 0 {
			n.LayoutPointer = pointer.Pointer{seg}
		} else {
			n.LayoutPointer = base.Append("items").AppendSegments(seg)
		}
		assignPointers(n.Items, n.LayoutPointer, n.Widget.Kind == widgets.KindArray)
	}
}

// FreshIDs assigns a new unique ID to n and every descendant.
func FreshIDs(n *Node) {
	n.Walk(func(node *Node) bool {
		node.ID = uuid.NewString()
		return true
	})
}
