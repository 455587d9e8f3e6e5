package pointer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCompileRoundTrip(t *testing.T) {
	cases := [][]string{
		{},
		{"a"},
		{"a", "b", "c"},
		{"with/slash", "with~tilde", ""},
		{"0", "10", "x y"},
	}
	for _, keys := range cases {
		compiled := New(keys...).String()
		parsed, err := Parse(compiled)
		if err != nil {
			t.Fatalf("parse %q: %v", compiled, err)
		}
		if diff := cmp.Diff(keys, parsed.Keys()); diff != "" && len(keys) > 0 {
			t.Fatalf("round trip mismatch for %q (-want +got):\n%s", compiled, diff)
		}
	}
}

func TestParseRejectsInvalidInput(t *testing.T) {
	if _, err := Parse("a/b"); !errors.Is(err, ErrInvalidPointer) {
		t.Fatalf("expected ErrInvalidPointer, got %v", err)
	}
	if _, err := From(42); !errors.Is(err, ErrInvalidPointer) {
		t.Fatalf("expected ErrInvalidPointer for int input, got %v", err)
	}
}

func TestParseFragmentForm(t *testing.T) {
	p, err := Parse("#/definitions/a%20b")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := p.String(); got != "/definitions/a b" {
		t.Fatalf("unexpected pointer %q", got)
	}
}

func TestPlaceholderIsTyped(t *testing.T) {
	generic := MustParse("/items/-/name")
	if !generic[1].IsWildcard() {
		t.Fatalf("expected placeholder segment")
	}
	literal := New("items", "-", "name")
	if literal[1].IsWildcard() {
		t.Fatalf("literal key must not become a placeholder")
	}
	if literal.IsGeneric() {
		t.Fatalf("literal pointer reported generic")
	}
}

func TestGet(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": []any{"x", "y", "z"}},
		"-": "dash",
	}
	cases := []struct {
		ptr    string
		want   any
		wantOK bool
	}{
		{"/a/b/0", "x", true},
		{"/a/b/-", "z", true},
		{"/a/b/3", nil, false},
		{"/a/missing", nil, false},
		{"/-", "dash", true},
		{"/a/b/01", nil, false},
	}
	for _, tc := range cases {
		got, ok := Get(doc, MustParse(tc.ptr))
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("Get(%s) = %v, %v; want %v, %v", tc.ptr, got, ok, tc.want, tc.wantOK)
		}
	}
	if parent, ok := GetRange(doc, MustParse("/a/b/1"), 0, 1); !ok {
		t.Fatalf("expected parent lookup to succeed")
	} else if diff := cmp.Diff([]any{"x", "y", "z"}, parent); diff != "" {
		t.Fatalf("parent mismatch (-want +got):\n%s", diff)
	}
}

func TestSetCreatesContainers(t *testing.T) {
	root, err := Set(nil, MustParse("/a/0/b"), 1)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	root, err = Set(root, MustParse("/a/-"), "tail")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	want := map[string]any{"a": []any{map[string]any{"b": 1}, "tail"}}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestSetIntoScalar(t *testing.T) {
	_, err := Set(map[string]any{"a": "text"}, MustParse("/a/b"), 1)
	if !errors.Is(err, ErrNotObject) {
		t.Fatalf("err = %v, want ErrNotObject", err)
	}
}

func TestInsertAndRemove(t *testing.T) {
	root := any(map[string]any{"list": []any{"a", "c"}})
	root, err := Insert(root, MustParse("/list/1"), "b")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"list": []any{"a", "b", "c"}}, root); diff != "" {
		t.Fatalf("insert mismatch (-want +got):\n%s", diff)
	}
	root, err = Remove(root, MustParse("/list/-"))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	root, err = Remove(root, MustParse("/list/0"))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"list": []any{"b"}}, root); diff != "" {
		t.Fatalf("remove mismatch (-want +got):\n%s", diff)
	}
	if _, err := Remove(root, MustParse("/nope")); err == nil {
		t.Fatalf("expected error removing a missing key")
	}
}

func TestForEachDeepOrder(t *testing.T) {
	doc := map[string]any{"b": []any{1}, "a": 2}
	var pre, post []string
	ForEachDeep(doc, func(_ any, p Pointer, _ any) { pre = append(pre, p.String()) }, false)
	ForEachDeep(doc, func(_ any, p Pointer, _ any) { post = append(post, p.String()) }, true)
	if diff := cmp.Diff([]string{"", "/a", "/b", "/b/0"}, pre); diff != "" {
		t.Fatalf("pre-order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/a", "/b/0", "/b", ""}, post); diff != "" {
		t.Fatalf("post-order mismatch (-want +got):\n%s", diff)
	}
}

func TestMapDeepDoesNotMutate(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"n": 1}}
	out := MapDeep(doc, nil, func(v any, _ Pointer) any {
		if n, ok := v.(int); ok {
			return n + 1
		}
		return v
	}, true)
	if diff := cmp.Diff(map[string]any{"a": map[string]any{"n": 2}}, out); diff != "" {
		t.Fatalf("unexpected copy (-want +got):\n%s", diff)
	}
	if doc["a"].(map[string]any)["n"] != 1 {
		t.Fatalf("source tree mutated")
	}
}

func TestIsSubPointer(t *testing.T) {
	cases := []struct {
		short, long string
		matching    bool
		want        bool
	}{
		{"/definitions/comment", "/definitions/comment/properties/replies/items", false, true},
		{"/a", "/ab", false, false},
		{"/a", "/a", false, false},
		{"/a", "/a", true, true},
		{"", "/a", false, true},
	}
	for _, tc := range cases {
		if got := IsSubPointer(MustParse(tc.short), MustParse(tc.long), tc.matching); got != tc.want {
			t.Fatalf("IsSubPointer(%q, %q, %v) = %v", tc.short, tc.long, tc.matching, got)
		}
	}

	literal := New("list", "-", "name")
	generic := MustParse("/list/-")
	if IsSubPointer(generic, literal, false) {
		t.Fatalf("placeholder matched a property named \"-\"")
	}
	if !IsSubPointer(New("list", "-"), literal, false) {
		t.Fatalf("literal \"-\" should prefix itself")
	}
	if !IsSubPointer(generic, MustParse("/list/-/name"), false) {
		t.Fatalf("placeholder should prefix placeholder")
	}
}

func TestIndexedGenericInverse(t *testing.T) {
	arrays := ArrayMap{"/items": 2, "/items/-/tags": 0}
	generic := MustParse("/items/-/tags/-")
	for _, idx := range [][]int{{2, 0}, {5, 7}, {9, 1}} {
		indexed := ToIndexed(generic, idx, arrays)
		if got := ToGeneric(indexed, arrays); !got.Equal(generic) {
			t.Fatalf("ToGeneric(%s) = %s, want %s", indexed, got, generic)
		}
	}
	tuple := ToGeneric(MustParse("/items/1"), arrays)
	if got := tuple.String(); got != "/items/1" {
		t.Fatalf("tuple index rewritten: %s", got)
	}
}

func TestToIndexedWithTupleLevels(t *testing.T) {
	arrays := ArrayMap{"/pair": 2, "/pair/1": 0}
	got := ToIndexed(MustParse("/pair/1/-"), []int{1, 4}, arrays)
	if got.String() != "/pair/1/4" {
		t.Fatalf("unexpected indexed pointer %s", got)
	}
	if diff := cmp.Diff([]int{1, 4}, Indices(got, arrays)); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
	plain := ToIndexed(MustParse("/a/-/b/-"), []int{3, 5}, nil)
	if plain.String() != "/a/3/b/5" {
		t.Fatalf("unexpected sequential replacement %s", plain)
	}
}

func TestParseObjectPath(t *testing.T) {
	cases := map[string]string{
		"name":              "/name",
		"address.street":    "/address/street",
		"friends[].name":    "/friends/-/name",
		"tags[0]":           "/tags/0",
		`a["b.c"].d`:        "/a/b.c/d",
		"/already/pointer":  "/already/pointer",
		"matrix[][]":        "/matrix/-/-",
		"list['x y'][2].id": "/list/x y/2/id",
	}
	for in, want := range cases {
		got, err := ParseObjectPath(in)
		if err != nil {
			t.Fatalf("ParseObjectPath(%q): %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("ParseObjectPath(%q) = %q, want %q", in, got.String(), want)
		}
	}
}

func TestRebase(t *testing.T) {
	got, ok := Rebase(MustParse("/comment/text"), MustParse("/comment"), MustParse("/comment/replies/-"))
	if !ok || got.String() != "/comment/replies/-/text" {
		t.Fatalf("unexpected rebase %s (%v)", got, ok)
	}
}
