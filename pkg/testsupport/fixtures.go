// Package testsupport holds fixture and golden file helpers shared by tests.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

// MustReadFixture reads a fixture file.
func MustReadFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// MustDecodeSchema reads a JSON or YAML schema fixture keeping property order.
func MustDecodeSchema(t *testing.T, path string) map[string]any {
	t.Helper()
	raw := MustReadFixture(t, path)
	var (
		out map[string]any
		err error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		out, err = jsonschema.DecodeSchemaYAML(raw)
	default:
		out, err = jsonschema.DecodeSchema(raw)
	}
	if err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
	return out
}

// MustLoadForm builds a form from a combined inputs fixture.
func MustLoadForm(t *testing.T, path string, opts ...form.Option) *form.Form {
	t.Helper()
	in, err := form.LoadInputs(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		t.Fatalf("load inputs: %v", err)
	}
	f, err := form.NewContext(Context(), in, opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return f
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGolden compares got with the golden file at path, or rewrites the
// file when UPDATE_GOLDENS is set.
func AssertGolden(t *testing.T, path string, got []byte) {
	t.Helper()
	if WriteMaybeGolden(t, path, got) {
		return
	}
	want := MustReadFixture(t, path)
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
