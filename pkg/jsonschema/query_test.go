package jsonschema

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

func querySchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"pair": map[string]any{
				"type":            "array",
				"items":           []any{map[string]any{"type": "string"}, map[string]any{"type": "integer"}},
				"additionalItems": map[string]any{"type": "boolean"},
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object", "properties": map[string]any{"label": map[string]any{"type": "string"}}},
			},
		},
	}
}

func TestToDataPointer(t *testing.T) {
	cases := []struct {
		schema string
		data   string
		ok     bool
	}{
		{schema: "", data: "", ok: true},
		{schema: "/properties/name", data: "/name", ok: true},
		{schema: "/properties/pair/items/1", data: "/pair/1", ok: true},
		{schema: "/properties/pair/additionalItems", data: "/pair/-", ok: true},
		{schema: "/properties/tags/items/properties/label", data: "/tags/-/label", ok: true},
		{schema: "/properties/pair/items/5", ok: false},
		{schema: "/allOf/0", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.schema, func(t *testing.T) {
			got, ok := ToDataPointer(pointer.MustParse(tc.schema), querySchema())
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.String() != tc.data {
				t.Fatalf("data pointer = %q, want %q", got.String(), tc.data)
			}
		})
	}
}

func TestToSchemaPointer(t *testing.T) {
	cases := []struct {
		data   string
		schema string
	}{
		{data: "/name", schema: "/properties/name"},
		{data: "/pair/0", schema: "/properties/pair/items/0"},
		{data: "/pair/4", schema: "/properties/pair/additionalItems"},
		{data: "/tags/3/label", schema: "/properties/tags/items/properties/label"},
		{data: "/tags/-/label", schema: "/properties/tags/items/properties/label"},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, ok := ToSchemaPointer(pointer.MustParse(tc.data), querySchema())
			if !ok || got.String() != tc.schema {
				t.Fatalf("schema pointer = %q (%v), want %q", got.String(), ok, tc.schema)
			}
		})
	}
}

func TestIsInputRequired(t *testing.T) {
	s := querySchema()
	if !IsInputRequired(pointer.MustParse("/properties/name"), s) {
		t.Fatalf("expected name required")
	}
	if IsInputRequired(pointer.MustParse("/properties/tags"), s) {
		t.Fatalf("expected tags optional")
	}
}

func TestTitleMaps(t *testing.T) {
	node := map[string]any{"oneOf": []any{
		map[string]any{"const": "s", "title": "Small"},
		map[string]any{"enum": []any{"l"}},
	}}
	got, ok := TitleMapFromOneOf(node)
	if !ok {
		t.Fatalf("expected title map")
	}
	want := []TitleMapEntry{{Name: "Small", Value: "s"}, {Name: "l", Value: "l"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("title map mismatch (-want +got):\n%s", diff)
	}
	if _, ok := TitleMapFromOneOf(map[string]any{"oneOf": []any{map[string]any{"type": "string"}}}); ok {
		t.Fatalf("expected no title map for open oneOf")
	}
	enumMap, _ := TitleMapFromEnum(map[string]any{"enum": []any{float64(1), float64(2)}, "enumNames": []any{"One"}})
	if diff := cmp.Diff([]TitleMapEntry{{Name: "One", Value: float64(1)}, {Name: "2", Value: float64(2)}}, enumMap); diff != "" {
		t.Fatalf("enum title map mismatch (-want +got):\n%s", diff)
	}
}

func TestPropertyOrder(t *testing.T) {
	node := map[string]any{
		"ui:order":   []any{"c", "*", "a", "missing"},
		"properties": map[string]any{"a": 1, "b": 2, "c": 3, "d": 4},
	}
	if diff := cmp.Diff([]string{"c", "b", "d", "a"}, PropertyOrder(node)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPrimaryType(t *testing.T) {
	cases := []struct {
		name string
		node map[string]any
		want string
	}{
		{name: "declared", node: map[string]any{"type": "string"}, want: "string"},
		{name: "nullable first", node: map[string]any{"type": []any{"null", "integer"}}, want: "integer"},
		{name: "only null", node: map[string]any{"type": []any{"null"}}, want: "null"},
		{name: "properties", node: map[string]any{"properties": map[string]any{}}, want: "object"},
		{name: "enum strings", node: map[string]any{"enum": []any{"x", "y", nil}}, want: "string"},
		{name: "enum numbers widen", node: map[string]any{"enum": []any{float64(1), 2.5}}, want: "number"},
		{name: "enum mixed", node: map[string]any{"enum": []any{"x", float64(1)}}, want: ""},
		{name: "const", node: map[string]any{"const": true}, want: "boolean"},
		{
			name: "oneOf consts",
			node: map[string]any{"oneOf": []any{map[string]any{"const": float64(1)}, map[string]any{"const": float64(2)}}},
			want: "integer",
		},
		{name: "empty", node: map[string]any{}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PrimaryType(tc.node); got != tc.want {
				t.Fatalf("PrimaryType = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWrapRootArray(t *testing.T) {
	root := map[string]any{
		"definitions": map[string]any{"x": map[string]any{"type": "string"}},
		"type":        "array",
		"items":       map[string]any{"$ref": "#/definitions/x"},
	}
	got, ok := WrapRootArray(root)
	if !ok {
		t.Fatalf("expected wrap")
	}
	res, err := ResolveReferences(got, ResolveOptions{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	items, _ := pointer.Get(res.Schema, pointer.New("properties", RootArrayKey, "items"))
	if diff := cmp.Diff(map[string]any{"type": "string"}, items); diff != "" {
		t.Fatalf("wrapped items mismatch (-want +got):\n%s", diff)
	}
}
