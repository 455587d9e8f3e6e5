package openapi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/internal/jsonschema/loader"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

func petstore(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "petstore.yaml"))
	if err != nil {
		t.Fatalf("read petstore: %v", err)
	}
	return raw
}

func TestSchemaFromOperation_RewritesComponentRefs(t *testing.T) {
	got, err := SchemaFromOperation(context.Background(), petstore(t), Selector{OperationID: "createPet"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if got["$ref"] != "#/definitions/Pet" {
		t.Fatalf("$ref = %#v", got["$ref"])
	}
	if got["title"] != "Create a pet" {
		t.Fatalf("title = %#v", got["title"])
	}
	defs, ok := got["definitions"].(map[string]any)
	if !ok {
		t.Fatalf("definitions missing: %#v", got)
	}
	if _, ok := defs["Unused"]; ok {
		t.Fatalf("unreferenced component copied")
	}
	pet := defs["Pet"].(map[string]any)
	props := pet["properties"].(map[string]any)
	if diff := cmp.Diff([]any{"string", "null"}, props["tag"].(map[string]any)["type"]); diff != "" {
		t.Fatalf("nullable tag (-want +got):\n%s", diff)
	}
	if props["owner"].(map[string]any)["$ref"] != "#/definitions/Owner" {
		t.Fatalf("owner ref not rewritten: %#v", props["owner"])
	}
	if diff := cmp.Diff([]any{"name", "tag", "owner"}, pet[jsonschema.OrderKey]); diff != "" {
		t.Fatalf("property order (-want +got):\n%s", diff)
	}
	owner := defs["Owner"].(map[string]any)
	items := owner["properties"].(map[string]any)["pets"].(map[string]any)["items"].(map[string]any)
	if items["$ref"] != "#/definitions/Pet" {
		t.Fatalf("nested ref not rewritten: %#v", items)
	}
}

func TestSchemaFromOperation_MethodAndPath(t *testing.T) {
	got, err := SchemaFromOperation(context.Background(), petstore(t), Selector{Method: "put", Path: "/pets/{id}"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if got["type"] != "object" {
		t.Fatalf("type = %#v", got["type"])
	}
	if _, ok := got["definitions"]; ok {
		t.Fatalf("unexpected definitions")
	}
}

func TestSchemaFromOperation_Errors(t *testing.T) {
	cases := []struct {
		name string
		sel  Selector
		want error
	}{
		{name: "unknown id", sel: Selector{OperationID: "deletePet"}, want: ErrOperationNotFound},
		{name: "unknown path", sel: Selector{Method: "GET", Path: "/owners"}, want: ErrOperationNotFound},
		{name: "no body", sel: Selector{OperationID: "listPets"}, want: ErrNoRequestBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SchemaFromOperation(context.Background(), petstore(t), tc.sel)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := SchemaFromOperation(context.Background(), nil, Selector{OperationID: "x"}); err == nil {
		t.Fatalf("expected empty document error")
	}
}

func TestOperations_Sorted(t *testing.T) {
	got, err := Operations(context.Background(), petstore(t))
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	want := []Operation{
		{ID: "listPets", Method: "GET", Path: "/pets", Summary: "List pets"},
		{ID: "createPet", Method: "POST", Path: "/pets", Summary: "Create a pet", MediaType: "application/json"},
		{ID: "updatePet", Method: "PUT", Path: "/pets/{id}", MediaType: "application/x-www-form-urlencoded"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("operations (-want +got):\n%s", diff)
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "yaml", raw: "openapi: 3.0.0\n", want: true},
		{name: "json", raw: `{"swagger":"2.0"}`, want: true},
		{name: "schema", raw: `{"type":"object"}`, want: false},
		{name: "empty", raw: "  ", want: false},
	}
	for _, tc := range cases {
		if got := Detect([]byte(tc.raw)); got != tc.want {
			t.Fatalf("%s: Detect = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAdapter_LoadsThroughSchemaLoader(t *testing.T) {
	l := loader.New(jsonschema.LoaderOptions{
		FileSystem: fstest.MapFS{"api/petstore.yaml": {Data: petstore(t)}},
	})
	got, err := NewAdapter(l).Schema(context.Background(), jsonschema.SourceFromFS("api/petstore.yaml"), Selector{OperationID: "createPet"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if got["$ref"] != "#/definitions/Pet" {
		t.Fatalf("$ref = %#v", got["$ref"])
	}
}
