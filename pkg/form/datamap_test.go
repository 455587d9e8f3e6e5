package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/pkg/layout"
)

// leaves collects the bound layout nodes without children.
func leaves(nodes []*layout.Node) []*layout.Node {
	var out []*layout.Node
	for _, n := range nodes {
		if n.IsAddButton() {
			continue
		}
		if len(n.Items) > 0 {
			out = append(out, leaves(n.Items)...)
			continue
		}
		if n.Bound() {
			out = append(out, n)
		}
	}
	return out
}

func TestLayoutLeavesHaveTypedEntries(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		data   any
		want   []string
	}{
		{
			name:   "tuple",
			schema: tupleSchema,
			data:   map[string]any{"items": []any{"a", float64(1), "b"}},
			want:   []string{"/items/0", "/items/1", "/items/-"},
		},
		{
			name: "list",
			schema: `{
  "type": "object",
  "properties": {"tags": {"type": "array", "items": {"type": "string"}}}
}`,
			data: map[string]any{"tags": []any{"x"}},
			want: []string{"/tags/-"},
		},
		{
			name: "nested list",
			schema: `{
  "type": "object",
  "properties": {
    "groups": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`,
			data: map[string]any{"groups": []any{map[string]any{"name": "g", "tags": []any{"x"}}}},
			want: []string{"/groups/-/name", "/groups/-/tags/-"},
		},
		{
			name:   "recursive",
			schema: commentSchema,
			data: map[string]any{"comment": map[string]any{
				"text":    "first",
				"replies": []any{map[string]any{"text": "second"}},
			}},
			want: []string{"/comment/text", "/comment/replies/-/text"},
		},
		{
			name: "enum only",
			schema: `{
  "type": "object",
  "properties": {
    "e": {"enum": ["x", "y"]},
    "n": {"oneOf": [{"const": 1, "title": "One"}, {"const": 2, "title": "Two"}]}
  }
}`,
			want: []string{"/e", "/n"},
		},
		{
			name: "nullable",
			schema: `{
  "type": "object",
  "properties": {
    "age": {"type": ["integer", "null"], "minimum": 0},
    "nick": {"type": ["null", "string"]}
  }
}`,
			want: []string{"/age", "/nick"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := mustForm(t, tc.schema, tc.data, WithOptions(Options{AddSubmit: ModeFalse}))
			var got []string
			for _, n := range leaves(f.Layout()) {
				got = append(got, n.DataPointer.String())
				e, ok := f.entry(n.DataPointer)
				if !ok {
					t.Fatalf("no data map entry for %s", n.DataPointer)
				}
				if e.SchemaType == "" {
					t.Fatalf("entry for %s has no schema type", n.DataPointer)
				}
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("leaves mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNullableInteger(t *testing.T) {
	f := mustForm(t, `{
  "type": "object",
  "properties": {"age": {"type": ["integer", "null"], "minimum": 0}}
}`, nil, WithOptions(Options{AddSubmit: ModeFalse}))

	age := f.Layout()[0]
	if age.Type != "integer" {
		t.Fatalf("widget = %q, want integer", age.Type)
	}
	if e, ok := f.entry(age.DataPointer); !ok || e.SchemaType != "integer" {
		t.Fatalf("entry = %+v", e)
	}
	if !f.UpdateValue(Context{LayoutNode: age}, "42") {
		t.Fatalf("update age failed")
	}
	if diff := cmp.Diff(map[string]any{"age": int64(42)}, f.Data()); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if !f.IsValid() {
		t.Fatalf("expected valid form, errors = %+v", f.ValidationErrors())
	}

	if !f.UpdateValue(Context{LayoutNode: age}, "") {
		t.Fatalf("clear age failed")
	}
	if diff := cmp.Diff(map[string]any{}, f.Data()); diff != "" {
		t.Fatalf("data mismatch after clear (-want +got):\n%s", diff)
	}
	if !f.IsValid() {
		t.Fatalf("expected valid form after clear, errors = %+v", f.ValidationErrors())
	}
}

func TestUntypedEnumIsSelect(t *testing.T) {
	f := mustForm(t, `{
  "type": "object",
  "properties": {"e": {"enum": ["x", "y"]}}
}`, nil, WithOptions(Options{AddSubmit: ModeFalse}))

	e := f.Layout()[0]
	if e.Type != "select" {
		t.Fatalf("widget = %q, want select", e.Type)
	}
	if !f.UpdateValue(Context{LayoutNode: e}, "y") {
		t.Fatalf("update failed")
	}
	if diff := cmp.Diff(map[string]any{"e": "y"}, f.Data()); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if !f.IsValid() {
		t.Fatalf("expected valid form, errors = %+v", f.ValidationErrors())
	}
}
