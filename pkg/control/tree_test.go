package control

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

func listTree(t *testing.T) (*Tree, *State) {
	t.Helper()
	state := mustState(t, `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "maxLength": 5},
    "tags": {"type": "array", "items": {"type": "string"}, "maxItems": 3},
    "meta": {"type": "object", "properties": {"owner": {"type": "string"}}}
  }
}`)
	tmpl := mustBuild(t, state, map[string]any{"tags": []any{"a", "b", "c"}}, Options{})
	return NewTree(tmpl), state
}

func TestTree_NotifiesOncePerChange(t *testing.T) {
	tree, state := listTree(t)
	var ops []Op
	cancel := tree.Subscribe(func(c Change) { ops = append(ops, c.Op) })

	tags := pointer.MustParse("/tags")
	tree.SetValue(pointer.MustParse("/title"), "hi")
	tree.Move(tags, 0, 2)
	tree.RemoveAt(tags, 1)
	item, _ := state.Library.Instantiate(pointer.MustParse("/tags/-"))
	tree.Push(tags, NewControl(item))
	tree.RemoveControl(pointer.MustParse("/meta"), "owner")

	want := []Op{OpSetValue, OpMove, OpRemove, OpPush, OpDelControl}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}

	cancel()
	tree.SetValue(pointer.MustParse("/title"), "again")
	if len(ops) != len(want) {
		t.Fatalf("notified after cancel")
	}
}

func TestTree_MoveReordersItems(t *testing.T) {
	tree, _ := listTree(t)
	if !tree.Move(pointer.MustParse("/tags"), 2, 0) {
		t.Fatalf("move failed")
	}
	got, _ := tree.Get(pointer.MustParse("/tags"))
	if diff := cmp.Diff([]any{"c", "a", "b"}, got.Value()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if tree.Move(pointer.MustParse("/tags"), 0, 5) {
		t.Fatalf("expected out of range move to fail")
	}
}

func TestTree_RejectsInvalidTargets(t *testing.T) {
	tree, _ := listTree(t)
	cases := []struct {
		name string
		run  func() bool
	}{
		{name: "set on group", run: func() bool { return tree.SetValue(pointer.MustParse("/meta"), "x") }},
		{name: "set on missing", run: func() bool { return tree.SetValue(pointer.MustParse("/nope"), "x") }},
		{name: "push on leaf", run: func() bool {
			return tree.Push(pointer.MustParse("/title"), &Control{})
		}},
		{name: "remove out of range", run: func() bool { return tree.RemoveAt(pointer.MustParse("/tags"), 9) }},
		{name: "remove missing control", run: func() bool {
			return tree.RemoveControl(pointer.MustParse("/meta"), "nope")
		}},
		{name: "add control to array", run: func() bool {
			return tree.AddControl(pointer.MustParse("/tags"), "x", &Control{})
		}},
	}
	before := tree.Value()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.run() {
				t.Fatalf("expected failure")
			}
		})
	}
	if diff := cmp.Diff(before, tree.Value()); diff != "" {
		t.Fatalf("failed operations mutated the tree (-before +after):\n%s", diff)
	}
	if tree.Dirty() {
		t.Fatalf("failed operations marked the tree dirty")
	}
}

func TestTree_ErrorsAndValidity(t *testing.T) {
	tree, _ := listTree(t)
	tree.SetValue(pointer.MustParse("/title"), "too long")
	errs := tree.Errors()
	if len(errs["/title"]) != 1 || errs["/title"][0].Keyword != "maxLength" {
		t.Fatalf("errors = %v", errs)
	}
	if tree.Valid() {
		t.Fatalf("expected invalid tree")
	}
	tree.SetDisabled(pointer.MustParse("/title"), true)
	if !tree.Valid() {
		t.Fatalf("disabled control should not affect validity")
	}
}

func TestTree_LastItemPlaceholder(t *testing.T) {
	tree, _ := listTree(t)
	c, ok := tree.Get(pointer.MustParse("/tags/-"))
	if !ok || c.Value() != "c" {
		t.Fatalf("last item = %v, %v", c, ok)
	}
}

func TestTree_Silently(t *testing.T) {
	tree, _ := listTree(t)
	calls := 0
	tree.Subscribe(func(Change) { calls++ })
	tree.Silently(func() {
		tree.SetValue(pointer.MustParse("/title"), "x")
	})
	if calls != 0 {
		t.Fatalf("calls = %d", calls)
	}
	tree.SetValue(pointer.MustParse("/title"), "y")
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}
