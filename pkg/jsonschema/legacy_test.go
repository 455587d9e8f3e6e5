package jsonschema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConvertLegacyDialect(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]any
		want map[string]any
	}{
		{
			name: "required flags hoisted",
			in: map[string]any{
				"id":       "person",
				"required": true,
				"properties": map[string]any{
					"name": map[string]any{"type": "string", "required": true},
					"age":  map[string]any{"type": "integer", "required": false},
				},
			},
			want: map[string]any{
				"id":       "person" + ConvertedMarker,
				"required": []any{"name"},
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"age":  map[string]any{"type": "integer"},
				},
			},
		},
		{
			name: "type union and any",
			in: map[string]any{
				"type": []any{"string", map[string]any{"type": "integer", "divisibleBy": float64(2)}},
				"properties": map[string]any{
					"x": map[string]any{"type": "any"},
				},
			},
			want: map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "integer", "multipleOf": float64(2)},
				},
				"properties": map[string]any{"x": map[string]any{}},
			},
		},
		{
			name: "type name list kept",
			in: map[string]any{
				"properties": map[string]any{
					"age": map[string]any{"type": []any{"integer", "null"}, "minimum": float64(0)},
				},
			},
			want: map[string]any{
				"properties": map[string]any{
					"age": map[string]any{"type": []any{"integer", "null"}, "minimum": float64(0)},
				},
			},
		},
		{
			name: "extends disallow dependencies",
			in: map[string]any{
				"$schema":      "http://json-schema.org/draft-03/schema#",
				"extends":      map[string]any{"type": "object"},
				"disallow":     "null",
				"dependencies": map[string]any{"a": "b"},
			},
			want: map[string]any{
				"$schema":      draft4URI,
				"allOf":        []any{map[string]any{"type": "object"}},
				"not":          map[string]any{"type": "null"},
				"dependencies": map[string]any{"a": []any{"b"}},
			},
		},
		{
			name: "draft-04 untouched",
			in: map[string]any{
				"id":       "x",
				"type":     "object",
				"required": []any{"a"},
				"properties": map[string]any{
					"a": map[string]any{"type": "string", "enum": []any{map[string]any{"required": true}}},
				},
			},
			want: map[string]any{
				"id":       "x",
				"type":     "object",
				"required": []any{"a"},
				"properties": map[string]any{
					"a": map[string]any{"type": "string", "enum": []any{map[string]any{"required": true}}},
				},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConvertLegacyDialect(tc.in)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("conversion mismatch (-want +got):\n%s", diff)
			}
			again := ConvertLegacyDialect(got)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Fatalf("conversion not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestConvertLegacyDialect_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"properties": map[string]any{"a": map[string]any{"required": true}},
	}
	ConvertLegacyDialect(in)
	a := in["properties"].(map[string]any)["a"].(map[string]any)
	if a["required"] != true {
		t.Fatalf("input was modified: %#v", in)
	}
}
