package form

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestLoadOptions(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want func(o Options) bool
	}{
		{
			name: "defaults",
			raw:  `{}`,
			want: func(o Options) bool {
				return o.AddSubmit == ModeAuto && o.SetSchemaDefaults == ModeAuto && o.Pristine.Errors
			},
		},
		{
			name: "boolean modes from json",
			raw:  `{"addSubmit": false, "setSchemaDefaults": true}`,
			want: func(o Options) bool { return o.AddSubmit == ModeFalse && o.SetSchemaDefaults == ModeTrue },
		},
		{
			name: "deprecated disable flags",
			raw:  "disableErrorState: true\ndisableSuccessState: false\n",
			want: func(o Options) bool {
				d := o.FormDefaults
				return d.EnableErrorState != nil && !*d.EnableErrorState &&
					d.EnableSuccessState != nil && *d.EnableSuccessState &&
					o.DisableErrorState == nil
			},
		},
		{
			name: "explicit enable flag wins",
			raw:  `{"disableErrorState": true, "formDefaults": {"enableErrorState": true}}`,
			want: func(o Options) bool { return *o.FormDefaults.EnableErrorState },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadOptions([]byte(tc.raw))
			if err != nil {
				t.Fatalf("LoadOptions: %v", err)
			}
			if !tc.want(got) {
				t.Fatalf("unexpected options %+v", got)
			}
		})
	}

	if _, err := LoadOptions([]byte(`{"addSubmit": "sometimes"}`)); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestFormDefaultsMap(t *testing.T) {
	yes, no := true, false
	got := FormDefaults{Orderable: &yes, Notitle: &no}.Map()
	want := map[string]any{"orderable": true, "notitle": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveInputs_Precedence(t *testing.T) {
	schema := map[string]any{"type": "object", "properties": map[string]any{"a": map[string]any{"type": "string"}}}
	cases := []struct {
		name       string
		raw        map[string]any
		wantLayout []any
		wantData   any
	}{
		{
			name:       "top level keys",
			raw:        map[string]any{"schema": schema, "layout": []any{"a"}, "data": map[string]any{"a": "x"}, "model": "ignored"},
			wantLayout: []any{"a"},
			wantData:   map[string]any{"a": "x"},
		},
		{
			name:       "nested form object",
			raw:        map[string]any{"form": map[string]any{"JSONSchema": schema, "form": []any{"*"}, "value": 1, "data": 2}},
			wantLayout: []any{"*"},
			wantData:   1,
		},
		{
			name:       "form list is the layout",
			raw:        map[string]any{"schema": schema, "form": []any{"a"}, "formData": "fd"},
			wantLayout: []any{"a"},
			wantData:   "fd",
		},
		{
			name: "properties shorthand",
			raw:  map[string]any{"form": map[string]any{"properties": schema["properties"]}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := ResolveInputs(tc.raw)
			if err != nil {
				t.Fatalf("ResolveInputs: %v", err)
			}
			if in.Schema["properties"] == nil {
				t.Fatalf("schema not resolved: %+v", in.Schema)
			}
			if diff := cmp.Diff(tc.wantLayout, in.Layout); diff != "" {
				t.Fatalf("layout mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantData, in.Data); diff != "" {
				t.Fatalf("data mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := ResolveInputs(map[string]any{"data": 1}); err != ErrNoSchema {
		t.Fatalf("err = %v, want ErrNoSchema", err)
	}
}

func TestLoadInputs_YAML(t *testing.T) {
	fsys := fstest.MapFS{"form.yaml": &fstest.MapFile{Data: []byte(`
schema:
  type: object
  properties:
    title: {type: string}
    count: {type: integer}
data:
  title: hello
`)}}
	in, err := LoadInputs(fsys, "form.yaml")
	if err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	f, err := New(in, WithOptions(Options{AddSubmit: ModeFalse}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := []string{f.Layout()[0].Name, f.Layout()[1].Name}; !cmp.Equal(got, []string{"title", "count"}) {
		t.Fatalf("property order = %v", got)
	}
	if diff := cmp.Diff(map[string]any{"title": "hello"}, f.Data()); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}
