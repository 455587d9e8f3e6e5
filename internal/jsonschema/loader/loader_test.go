package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	pkgjsonschema "github.com/goliatone/go-jsonform/pkg/jsonschema"
)

func TestLoader_Sources(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "schema.json")
	if err := os.WriteFile(filePath, []byte(`{"type":"string"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"integer"}`))
	}))
	defer server.Close()

	l := New(pkgjsonschema.LoaderOptions{
		FileSystem: fstest.MapFS{"schemas/a.yaml": {Data: []byte("type: boolean\n")}},
		HTTPClient: server.Client(),
	})
	l.Register("posted", []byte(`{"type":"null"}`))

	cases := []struct {
		name string
		src  pkgjsonschema.Source
		want string
	}{
		{name: "file", src: pkgjsonschema.SourceFromFile(filePath), want: "string"},
		{name: "fs", src: pkgjsonschema.SourceFromFS("schemas/a.yaml"), want: "boolean"},
		{name: "url", src: pkgjsonschema.SourceFromURL(server.URL + "/s.json"), want: "integer"},
		{name: "inline", src: pkgjsonschema.SourceInline("posted"), want: "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := l.Load(context.Background(), tc.src)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			decoded, err := pkgjsonschema.DecodeDocument(doc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded["type"] != tc.want {
				t.Fatalf("type = %#v, want %q", decoded["type"], tc.want)
			}
		})
	}
}

func TestLoader_Errors(t *testing.T) {
	l := New(pkgjsonschema.LoaderOptions{})
	if _, err := l.Load(context.Background(), pkgjsonschema.SourceFromURL("http://example.com/s.json")); err == nil {
		t.Fatalf("expected http disabled error")
	}
	if _, err := l.Load(context.Background(), pkgjsonschema.SourceInline("missing")); err == nil {
		t.Fatalf("expected unregistered inline error")
	}
	l.maxBytes = 4
	l.Register("big", []byte(`{"type":"string"}`))
	if _, err := l.Load(context.Background(), pkgjsonschema.SourceFromFS("x.json")); err == nil {
		t.Fatalf("expected nil fs error")
	}
}
