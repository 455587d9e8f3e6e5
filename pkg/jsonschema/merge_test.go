package jsonschema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeSchemas(t *testing.T) {
	cases := []struct {
		name string
		in   []map[string]any
		want map[string]any
	}{
		{
			name: "later plain keys win",
			in: []map[string]any{
				{"title": "A", "description": "kept"},
				{"title": "B"},
			},
			want: map[string]any{"title": "B", "description": "kept"},
		},
		{
			name: "properties and required merge",
			in: []map[string]any{
				{"properties": map[string]any{"a": map[string]any{"type": "string"}}, "required": []any{"a"}},
				{"properties": map[string]any{"a": map[string]any{"maxLength": float64(3)}, "b": map[string]any{}}, "required": []any{"b", "a"}},
			},
			want: map[string]any{
				"properties": map[string]any{
					"a": map[string]any{"type": "string", "maxLength": float64(3)},
					"b": map[string]any{},
				},
				"required": []any{"a", "b"},
			},
		},
		{
			name: "bounds tighten",
			in: []map[string]any{
				{"minimum": float64(1), "maximum": float64(10)},
				{"minimum": float64(0), "maximum": float64(5)},
			},
			want: map[string]any{"minimum": float64(1), "maximum": float64(5)},
		},
		{
			name: "enum and type intersect",
			in: []map[string]any{
				{"enum": []any{"a", "b", "c"}, "type": []any{"string", "null"}},
				{"enum": []any{"c", "b"}, "type": "string"},
			},
			want: map[string]any{"enum": []any{"b", "c"}, "type": "string"},
		},
		{
			name: "number and integer",
			in: []map[string]any{
				{"type": "number"},
				{"type": "integer"},
			},
			want: map[string]any{"type": "integer"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeSchemas(tc.in...)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombineAllOf_KeepsUnresolvedMembers(t *testing.T) {
	node := map[string]any{"allOf": []any{map[string]any{"$ref": "#"}, map[string]any{"type": "object"}}}
	got := CombineAllOf(node)
	if _, ok := got["allOf"]; !ok {
		t.Fatalf("expected allOf kept when a member is a reference")
	}
}

func TestFixRequiredArrayProperties_LeavesUnknownKeys(t *testing.T) {
	node := map[string]any{
		"type":     "array",
		"required": []any{"missing"},
		"items":    map[string]any{"type": "object", "properties": map[string]any{"a": map[string]any{}}},
	}
	got := FixRequiredArrayProperties(node)
	if _, ok := got["required"]; !ok {
		t.Fatalf("expected required kept when keys are not item properties")
	}
}
