package jsonschema

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-jsonform/pkg/schema"
)

// Source identifies where a JSON Schema document originated. It aliases the
// shared schema source so loaders can serve schema, layout and data alike.
type Source = schema.Source

// SourceKind enumerates the loader modalities.
type SourceKind = schema.SourceKind

const (
	SourceKindFile   = schema.SourceKindFile
	SourceKindFS     = schema.SourceKindFS
	SourceKindURL    = schema.SourceKindURL
	SourceKindInline = schema.SourceKindInline
)

// Document wraps a raw payload and its origin.
type Document = schema.Document

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	return schema.NewDocument(src, raw)
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	return schema.MustNewDocument(src, raw)
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source { return schema.SourceFromFile(path) }

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source { return schema.SourceFromFS(name) }

// SourceFromURL parses the supplied URL string and returns a Source.
func SourceFromURL(raw string) Source { return schema.SourceFromURL(raw) }

// Loader fetches documents referenced by a schema.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}

// LoaderOptions configures the default loader implementation.
type LoaderOptions struct {
	// FileSystem serves SourceKindFS documents.
	FileSystem fs.FS
	// HTTPClient serves SourceKindURL documents. When nil and
	// AllowHTTPFallback is set a client is created.
	HTTPClient        *http.Client
	AllowHTTPFallback bool
	RequestTimeout    time.Duration
}

// SourceInline names a payload supplied directly by the caller.
func SourceInline(name string) Source { return schema.SourceInline(name) }

// ParseSource turns a path or http(s) URL into a Source.
func ParseSource(raw string) (Source, error) { return schema.ParseSource(raw) }
