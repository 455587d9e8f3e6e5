package schema

import "testing"

func TestParseSource(t *testing.T) {
	cases := []struct {
		raw      string
		kind     SourceKind
		location string
		wantErr  bool
	}{
		{raw: "schemas/../form.json", kind: SourceKindFile, location: "form.json"},
		{raw: " https://example.com/form.json ", kind: SourceKindURL, location: "https://example.com/form.json"},
		{raw: "http://", wantErr: true},
		{raw: "  ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			src, err := ParseSource(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", src)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if src.Kind() != tc.kind || src.Location() != tc.location {
				t.Fatalf("source = %s %q, want %s %q", src.Kind(), src.Location(), tc.kind, tc.location)
			}
		})
	}
}

func TestSourceInlineDefaultsName(t *testing.T) {
	if got := SourceInline("").Location(); got != "inline" {
		t.Fatalf("location = %q", got)
	}
}

func TestDocumentFormat(t *testing.T) {
	cases := []struct {
		name string
		src  Source
		raw  string
		want Format
	}{
		{name: "yaml extension", src: SourceFromFile("form.yml"), raw: "{}", want: FormatYAML},
		{name: "json extension", src: SourceFromFS("a/form.json"), raw: "type: object", want: FormatJSON},
		{name: "sniffed json", src: SourceInline("posted"), raw: "  [1]", want: FormatJSON},
		{name: "sniffed yaml", src: SourceInline("posted"), raw: "type: object", want: FormatYAML},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MustNewDocument(tc.src, []byte(tc.raw)).Format(); got != tc.want {
				t.Fatalf("format = %s, want %s", got, tc.want)
			}
		})
	}
}
