package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func personSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "minLength": float64(2)},
			"age":  map[string]any{"type": "integer", "minimum": float64(0)},
			"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"name"},
	}
}

func TestSchemaValidator_ReportsLeafErrors(t *testing.T) {
	compiled, err := New().Compile(personSchema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	cases := []struct {
		name string
		data any
		want []Error
	}{
		{name: "valid", data: map[string]any{"name": "Ada", "age": 3}},
		{
			name: "missing required",
			data: map[string]any{"age": 1},
			want: []Error{{DataPath: "/name", Keyword: "required"}},
		},
		{
			name: "nested failures",
			data: map[string]any{"name": "A", "age": -1, "tags": []any{"x", 2}},
			want: []Error{
				{DataPath: "/age", Keyword: "minimum"},
				{DataPath: "/name", Keyword: "minLength"},
				{DataPath: "/tags/1", Keyword: "type"},
			},
		},
	}
	ignore := cmpopts.IgnoreFields(Error{}, "SchemaPath", "Message")
	sortErrors := cmpopts.SortSlices(func(a, b Error) bool { return a.DataPath < b.DataPath })
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := compiled.Validate(tc.data)
			if diff := cmp.Diff(tc.want, got, ignore, sortErrors, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchemaValidator_CachesBySchemaContent(t *testing.T) {
	v := New(WithCacheSize(2))
	first, err := v.Compile(personSchema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := v.Compile(personSchema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached validator for identical schema")
	}
	other, err := v.Compile(map[string]any{"type": "string"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if other == first {
		t.Fatalf("different schemas share a validator")
	}
}

func TestSchemaValidator_RejectsInvalidSchema(t *testing.T) {
	if _, err := New().Compile(map[string]any{"type": float64(7)}); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := New().Compile(nil); err == nil {
		t.Fatalf("expected error for nil schema")
	}
}
