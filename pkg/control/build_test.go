package control

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
)

func mustState(t *testing.T, raw string) *State {
	t.Helper()
	doc, err := jsonschema.DecodeSchema([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := jsonschema.ResolveReferences(doc, jsonschema.ResolveOptions{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return NewState(res)
}

func mustBuild(t *testing.T, state *State, value any, opts Options) *Template {
	t.Helper()
	tmpl, err := Build(state, value, opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tmpl
}

func entryAt(t *testing.T, state *State, ptr string) *schema.Entry {
	t.Helper()
	e, ok := state.DataMap.Get(pointer.MustParse(ptr))
	if !ok {
		t.Fatalf("data map has no entry at %q (keys %v)", ptr, state.DataMap.Keys())
	}
	return e
}

func TestBuild_BasicObject(t *testing.T) {
	state := mustState(t, `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "integer", "minimum": 0}
  },
  "required": ["name"]
}`)
	tmpl := mustBuild(t, state, nil, Options{})

	if tmpl.Kind != schema.KindGroup {
		t.Fatalf("root kind = %q", tmpl.Kind)
	}
	if diff := cmp.Diff([]string{"name", "age"}, tmpl.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	name := entryAt(t, state, "/name")
	if name.SchemaType != "string" || !name.IsRequired || name.TemplateKind != schema.KindLeaf {
		t.Fatalf("name entry = %+v", name)
	}
	if name.TemplatePointer.String() != "/controls/name" {
		t.Fatalf("name template pointer = %q", name.TemplatePointer)
	}
	age := entryAt(t, state, "/age")
	if age.SchemaType != "integer" || age.IsRequired {
		t.Fatalf("age entry = %+v", age)
	}
	if diff := cmp.Diff([]any{float64(0)}, age.Constraints["minimum"]); diff != "" {
		t.Fatalf("age minimum mismatch (-want +got):\n%s", diff)
	}
	root := entryAt(t, state, "")
	if diff := cmp.Diff([]string{"name"}, root.Required); diff != "" {
		t.Fatalf("root required mismatch (-want +got):\n%s", diff)
	}

	tree := NewTree(tmpl)
	if tree.Valid() {
		t.Fatalf("expected invalid tree before name is supplied")
	}
	if !tree.SetValue(pointer.MustParse("/name"), "Ada") {
		t.Fatalf("set name failed")
	}
	if !tree.Valid() {
		t.Fatalf("expected valid tree, errors %v", tree.Errors())
	}
}

func TestBuild_TupleWithAdditionalItems(t *testing.T) {
	state := mustState(t, `{
  "type": "object",
  "properties": {
    "items": {
      "type": "array",
      "items": [{"type": "string"}, {"type": "number"}],
      "additionalItems": {"type": "string"},
      "minItems": 1
    }
  }
}`)
	tmpl := mustBuild(t, state, nil, Options{})

	arr := tmpl.Controls["items"]
	if arr == nil || arr.Kind != schema.KindArray {
		t.Fatalf("items template = %+v", arr)
	}
	if len(arr.Items) != 2 {
		t.Fatalf("tuple items = %d, want 2", len(arr.Items))
	}
	if got := arr.Items[1].Pointer.String(); got != "/items/1" {
		t.Fatalf("tuple pointer = %q", got)
	}
	if !state.Library.Has(pointer.MustParse("/items/-")) {
		t.Fatalf("library keys = %v", state.Library.Keys())
	}
	entry := entryAt(t, state, "/items")
	if entry.Bounds == nil || entry.Bounds.TupleItems != 2 || !entry.Bounds.HasList {
		t.Fatalf("bounds = %+v", entry.Bounds)
	}
	if e := entryAt(t, state, "/items/0"); e.SchemaType != "string" {
		t.Fatalf("tuple slot 0 = %+v", e)
	}
	if e := entryAt(t, state, "/items/-"); e.SchemaPointer.String() != "/properties/items/additionalItems" {
		t.Fatalf("list slot = %+v", e)
	}

	tree := NewTree(tmpl)
	for want := 3; want <= 4; want++ {
		item, ok := state.Library.Instantiate(pointer.MustParse("/items/-"))
		if !ok {
			t.Fatalf("instantiate list item failed")
		}
		if !tree.Push(pointer.MustParse("/items"), NewControl(item)) {
			t.Fatalf("push failed")
		}
		arr, _ := tree.Get(pointer.MustParse("/items"))
		if arr.Len() != want {
			t.Fatalf("array length = %d, want %d", arr.Len(), want)
		}
		generic := pointer.ToGeneric(pointer.New("items").AppendIndex(want-1), state.ArrayMap)
		if generic.String() != "/items/-" {
			t.Fatalf("generic pointer = %q", generic)
		}
	}
	if _, ok := tree.Get(pointer.MustParse("/items/1")); !ok {
		t.Fatalf("tuple slot not addressable")
	}
	if got := pointer.ToGeneric(pointer.MustParse("/items/1"), state.ArrayMap).String(); got != "/items/1" {
		t.Fatalf("tuple pointer rewritten to %q", got)
	}
}

func TestBuild_PureListMaterializesOneItem(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int
	}{
		{name: "no data", value: nil, want: 1},
		{name: "empty list", value: map[string]any{"tags": []any{}}, want: 1},
		{name: "three values", value: map[string]any{"tags": []any{"a", "b", "c"}}, want: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := mustState(t, `{"type": "object", "properties": {"tags": {"type": "array", "items": {"type": "string"}}}}`)
			tmpl := mustBuild(t, state, tc.value, Options{})
			if got := len(tmpl.Controls["tags"].Items); got != tc.want {
				t.Fatalf("items = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBuild_RecursiveSchema(t *testing.T) {
	state := mustState(t, `{
  "definitions": {
    "comment": {
      "type": "object",
      "properties": {
        "text": {"type": "string"},
        "replies": {"type": "array", "items": {"$ref": "#/definitions/comment"}}
      }
    }
  },
  "type": "object",
  "properties": {"comment": {"$ref": "#/definitions/comment"}}
}`)
	data := map[string]any{
		"comment": map[string]any{
			"text": "first",
			"replies": []any{
				map[string]any{"text": "second", "replies": []any{}},
			},
		},
	}
	tmpl := mustBuild(t, state, data, Options{})

	if !state.Library.Has(pointer.MustParse("/comment")) {
		t.Fatalf("library keys = %v", state.Library.Keys())
	}
	fragment, _ := state.Library.Get(pointer.MustParse("/comment"))
	if fragment.Kind != schema.KindGroup || len(fragment.Controls["replies"].Items) != 0 {
		t.Fatalf("recursive fragment = %+v", fragment)
	}
	if e := entryAt(t, state, "/comment/text"); e.SchemaPointer.String() != "/properties/comment/properties/text" {
		t.Fatalf("text entry = %+v", e)
	}
	if _, ok := state.DataMap.Get(pointer.MustParse("/comment/replies/-/text")); ok {
		t.Fatalf("recursive location registered twice")
	}
	e, key, ok := state.DataMap.Lookup(pointer.MustParse("/comment/replies/0/text"), state.DataRecursiveRefMap, state.ArrayMap)
	if !ok || key.String() != "/comment/text" || e.SchemaType != "string" {
		t.Fatalf("lookup = %+v %q %v", e, key, ok)
	}

	tree := NewTree(tmpl)
	if diff := cmp.Diff(data, tree.Value()); diff != "" {
		t.Fatalf("tree value mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RecursiveSlotWithoutDataIsEmpty(t *testing.T) {
	state := mustState(t, `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "child": {"$ref": "#"}
  }
}`)
	tmpl := mustBuild(t, state, nil, Options{})
	if _, ok := tmpl.Controls["child"]; ok {
		t.Fatalf("expected no template for empty recursive slot")
	}
	if !state.Library.Has(pointer.Root()) {
		t.Fatalf("library keys = %v", state.Library.Keys())
	}

	tmpl = mustBuild(t, mustState(t, `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "child": {"$ref": "#"}
  }
}`), map[string]any{"name": "a", "child": map[string]any{"name": "b"}}, Options{})
	child := tmpl.Controls["child"]
	if child == nil || child.Controls["name"].Value != "b" {
		t.Fatalf("child template = %+v", child)
	}
}

func TestBuild_SchemaDefaults(t *testing.T) {
	const raw = `{"type": "object", "properties": {"color": {"type": "string", "default": "red"}}}`
	cases := []struct {
		name  string
		mode  SchemaDefaults
		value any
		want  any
	}{
		{name: "auto without data", mode: DefaultsAuto, value: nil, want: "red"},
		{name: "auto with data", mode: DefaultsAuto, value: map[string]any{}, want: nil},
		{name: "always", mode: DefaultsAlways, value: map[string]any{}, want: "red"},
		{name: "never", mode: DefaultsNever, value: nil, want: nil},
		{name: "data wins", mode: DefaultsAlways, value: map[string]any{"color": "blue"}, want: "blue"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tmpl := mustBuild(t, mustState(t, raw), tc.value, Options{SetSchemaDefaults: tc.mode})
			if got := tmpl.Controls["color"].Value; got != tc.want {
				t.Fatalf("value = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuild_UnknownDefaultsMode(t *testing.T) {
	state := mustState(t, `{"type": "string"}`)
	if _, err := Build(state, nil, Options{SetSchemaDefaults: "sometimes"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuild_Disabled(t *testing.T) {
	state := mustState(t, `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "readOnly": true},
    "code": {"type": "string", "x-schema-form": {"disabled": true}},
    "name": {"type": "string"}
  }
}`)
	tmpl := mustBuild(t, state, nil, Options{})
	got := map[string]bool{}
	for key, child := range tmpl.Controls {
		got[key] = child.Disabled
	}
	if diff := cmp.Diff(map[string]bool{"id": true, "code": true, "name": false}, got); diff != "" {
		t.Fatalf("disabled mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplate_CloneIsDeep(t *testing.T) {
	state := mustState(t, `{"type": "object", "properties": {"tags": {"type": "array", "items": {"type": "string"}}}}`)
	tmpl := mustBuild(t, state, map[string]any{"tags": []any{"a"}}, Options{})
	clone := tmpl.Clone()
	clone.Controls["tags"].Items[0].Value = "changed"
	if tmpl.Controls["tags"].Items[0].Value != "a" {
		t.Fatalf("clone shares item templates")
	}
}
