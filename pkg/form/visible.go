package form

import (
	"github.com/goliatone/go-jsonform/pkg/schema"
	"github.com/goliatone/go-jsonform/pkg/visibility"
)

// IsVisible reports whether the node of ctx is shown. A node with a
// "condition" option is shown when the condition holds for the current
// data. An add node is hidden once its array holds maxItems items or its
// recursive slot is filled. A condition that fails to evaluate hides the
// node.
func (f *Form) IsVisible(ctx Context, extras map[string]any) bool {
	node := ctx.LayoutNode
	if node == nil {
		return false
	}
	if node.IsAddButton() && !f.canAdd(ctx) {
		return false
	}
	cond := node.StringOption("condition")
	if cond == "" {
		return true
	}
	at, _ := f.GetLayoutPointer(ctx)
	ok, err := f.cfg.evaluator.Eval(at.String(), cond, visibility.Context{
		Data:    f.snapshot.Data,
		Indices: ctx.DataIndex,
		Extras:  extras,
	})
	if err != nil {
		f.logger.Warn("form: condition", "node", node.ID, "condition", cond, "error", err)
		return false
	}
	return ok
}

func (f *Form) canAdd(ctx Context) bool {
	target, ok := f.GetDataPointer(ctx)
	if !ok {
		return false
	}
	last, ok := target.Last()
	parent := target.Parent()
	if !ok || parent.IsGeneric() {
		return false
	}
	owner, ok := f.tree.Get(parent)
	if !ok {
		return false
	}
	switch owner.Kind() {
	case schema.KindArray:
		return f.bounds(parent).CanAdd(owner.Len())
	case schema.KindGroup:
		_, exists := owner.Child(last.Key())
		return !exists
	}
	return false
}
