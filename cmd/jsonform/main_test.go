package main

import (
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/goliatone/go-jsonform/pkg/testsupport"
)

var petstore = filepath.Join("..", "..", "pkg", "openapi", "testdata", "petstore.yaml")

func TestOperations_Golden(t *testing.T) {
	out, err := operations(testsupport.Context(), flags{source: petstore})
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	testsupport.AssertGolden(t, filepath.Join("testdata", "operations.golden"), out)
}

func TestValidate_ExitCode(t *testing.T) {
	cases := []struct {
		name string
		data string
		code int
	}{
		{name: "missing name", code: 1},
		{name: "valid", data: filepath.Join("testdata", "pet.json"), code: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, code, err := validate(testsupport.Context(), flags{source: petstore, operation: "createPet", data: tc.data})
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if code != tc.code {
				t.Fatalf("code = %d, want %d\n%s", code, tc.code, out)
			}
			var snap map[string]any
			if err := gojson.Unmarshal(out, &snap); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if _, ok := snap["isValid"]; !ok {
				t.Fatalf("missing isValid in %s", out)
			}
		})
	}
}

func TestBuild_PrintsLayoutAndDataMap(t *testing.T) {
	out, err := build(testsupport.Context(), flags{source: filepath.Join("..", "..", "testdata", "profile.yaml")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var got struct {
		Layout  []map[string]any `json:"layout"`
		DataMap map[string]any   `json:"dataMap"`
	}
	if err := gojson.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Layout) != 2 {
		t.Fatalf("layout has %d nodes, want 2", len(got.Layout))
	}
	if _, ok := got.DataMap["/name"]; !ok {
		t.Fatalf("data map missing /name: %v", got.DataMap)
	}
}

func TestCheck(t *testing.T) {
	cases := []struct {
		name string
		f    flags
		code int
	}{
		{name: "openapi operation", f: flags{source: petstore, operation: "createPet"}, code: 0},
		{name: "bad keyword", f: flags{source: filepath.Join("testdata", "bad-schema.json")}, code: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, code, err := check(testsupport.Context(), tc.f)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if code != tc.code {
				t.Fatalf("code = %d, want %d\n%s", code, tc.code, out)
			}
		})
	}
}
