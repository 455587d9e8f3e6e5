package schema

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Source identifies where a schema, layout or data document originated so
// loaders can operate on files, fs.FS entries, URLs or in-memory payloads.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindURL    SourceKind = "url"
	SourceKindInline SourceKind = "inline"
)

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind { return s.kind }
func (s source) Location() string { return s.location }
func (s source) String() string   { return string(s.kind) + ":" + s.location }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(p string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(p)}
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: path.Clean(name)}
}

// SourceFromURL returns a Source for an absolute URL. It panics on an invalid
// URL; use ParseSource for user input.
func SourceFromURL(raw string) Source {
	src, err := urlSource(raw)
	if err != nil {
		panic(err)
	}
	return src
}

// SourceInline names a payload supplied directly by the caller, such as a
// schema posted to the session server.
func SourceInline(name string) Source {
	if strings.TrimSpace(name) == "" {
		name = "inline"
	}
	return source{kind: SourceKindInline, location: name}
}

// ParseSource reads a command line location: http and https URLs become URL
// sources, anything else a file path.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("schema: empty source")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return urlSource(raw)
	}
	return SourceFromFile(raw), nil
}

func urlSource(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	return source{kind: SourceKindURL, location: raw}, nil
}
