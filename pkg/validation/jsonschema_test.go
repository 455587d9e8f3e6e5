package validation

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
)

func TestValidateSchema_Valid(t *testing.T) {
	raw := []byte(`{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "object",
  "properties": {
    "title": { "type": "string" }
  }
}`)
	result := ValidateSchema(context.Background(), jsonschema.SourceInline("schema.json"), raw, SchemaCheckOptions{})
	if !result.Valid {
		t.Fatalf("expected schema to be valid: %#v", result.Issues)
	}
}

func TestValidateSchema_FieldPath(t *testing.T) {
	raw := []byte(`{
  "type": "object",
  "properties": {
    "title": { "type": "string", "minLength": "oops" }
  }
}`)
	result := ValidateSchema(context.Background(), nil, raw, SchemaCheckOptions{})
	if result.Valid {
		t.Fatalf("expected schema to be invalid")
	}
	if len(result.Issues) == 0 {
		t.Fatalf("expected validation issues")
	}
	if got := result.Issues[0].Field; !strings.HasPrefix(got, "title") {
		t.Fatalf("expected field path under title, got %q", got)
	}
}

func TestValidateSchema_OverlayError(t *testing.T) {
	raw := []byte(`{
  "type": "object",
  "properties": {
    "title": { "type": "string" }
  }
}`)
	opts := SchemaCheckOptions{}
	opts.Normalize.Overlay = &jsonschema.Overlay{Overrides: []jsonschema.OverlayOverride{{
		Path:       pointer.New("properties", "missing"),
		Extensions: map[string]any{jsonschema.HintKey: map[string]any{"title": "Missing"}},
	}}}
	result := ValidateSchema(context.Background(), nil, raw, opts)
	if result.Valid {
		t.Fatalf("expected overlay to be invalid")
	}
	if len(result.Issues) == 0 {
		t.Fatalf("expected overlay issue")
	}
	if result.Issues[0].Path == "" {
		t.Fatalf("expected overlay path in issue")
	}
}

func TestValidateSchema_MalformedJSON(t *testing.T) {
	result := ValidateSchema(context.Background(), nil, []byte(`{"type": `), SchemaCheckOptions{})
	if result.Valid || len(result.Issues) != 1 || result.Issues[0].Message == "" {
		t.Fatalf("result = %#v", result)
	}
}

func TestFieldPathFromPointer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "/properties/a/items/properties/b", want: "a.items.b"},
		{in: "#/definitions/Pet/properties/name", want: "name"},
		{in: "/properties/a/oneOf/1/properties/c", want: "a.c"},
		{in: "/properties/a~1b/minLength", want: "a/b.minLength"},
		{in: "not a pointer", want: ""},
	}
	for _, tc := range cases {
		if got := fieldPathFromPointer(tc.in); got != tc.want {
			t.Fatalf("fieldPathFromPointer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractJSONPointer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "jsonschema: unresolvable ref at /properties/a.", want: "/properties/a"},
		{in: "bad reference #/definitions/x)", want: "#/definitions/x"},
		{in: "plain message", want: ""},
	}
	for _, tc := range cases {
		if got := extractJSONPointer(tc.in); got != tc.want {
			t.Fatalf("extractJSONPointer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
