// Package jsonform builds interactive forms from JSON schemas. The form
// package does the work; this package offers one-call constructors for the
// usual sources: an inputs document, a bare schema or an OpenAPI operation.
package jsonform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/openapi"
)

// Form is the runtime coordinator of one form.
type Form = form.Form

// Inputs are the schema, layout, data and options a form is built from.
type Inputs = form.Inputs

// Options aliases form.Options for callers configuring forms from the root
// package.
type Options = form.Options

// Context identifies one rendered layout node.
type Context = form.Context

// Snapshot is the formatted data and validity of a form.
type Snapshot = form.Snapshot

// ErrOpenAPIDocument is returned by FromSchema for an OpenAPI document, which
// needs an operation to be selected first.
var ErrOpenAPIDocument = errors.New("jsonform: document is OpenAPI, use FromOpenAPI")

// New builds a form from inputs.
func New(ctx context.Context, in Inputs, opts ...form.Option) (*Form, error) {
	return form.NewContext(ctx, in, opts...)
}

// FromFile builds a form from a combined inputs document (JSON or YAML)
// holding schema, layout, data and options.
func FromFile(ctx context.Context, path string, opts ...form.Option) (*Form, error) {
	in, err := form.LoadInputs(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return form.NewContext(ctx, in, opts...)
}

// FromSchema builds a form from a bare JSON or YAML schema and optional
// initial data.
func FromSchema(ctx context.Context, raw []byte, data any, opts ...form.Option) (*Form, error) {
	if openapi.Detect(raw) {
		return nil, ErrOpenAPIDocument
	}
	schema, err := DecodeSchema(raw)
	if err != nil {
		return nil, err
	}
	return form.NewContext(ctx, Inputs{Schema: schema, Data: data}, opts...)
}

// FromOpenAPI builds a form for the request body of one operation of an
// OpenAPI document.
func FromOpenAPI(ctx context.Context, raw []byte, sel openapi.Selector, data any, opts ...form.Option) (*Form, error) {
	schema, err := openapi.SchemaFromOperation(ctx, raw, sel)
	if err != nil {
		return nil, err
	}
	return form.NewContext(ctx, Inputs{Schema: schema, Data: data}, opts...)
}

// FromSource loads src through loader and builds a form from it. The source
// may be a bare schema, a combined inputs document or an OpenAPI document, in
// which case sel picks the operation. A non-nil data replaces the data of a
// combined document.
func FromSource(ctx context.Context, loader jsonschema.Loader, src jsonschema.Source, sel openapi.Selector, data any, opts ...form.Option) (*Form, error) {
	if loader == nil {
		return nil, errors.New("jsonform: loader is nil")
	}
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("jsonform: load %s: %w", src.Location(), err)
	}
	raw := doc.Raw()
	if openapi.Detect(raw) {
		return FromOpenAPI(ctx, raw, sel, data, opts...)
	}
	decoded, err := jsonschema.DecodeDocument(doc)
	if err != nil {
		return nil, err
	}
	in := Inputs{Schema: decoded}
	if isCombined(decoded) {
		if in, err = form.ResolveInputs(decoded); err != nil {
			return nil, fmt.Errorf("jsonform: %s: %w", src.Location(), err)
		}
	}
	if data != nil {
		in.Data = data
	}
	base := []form.Option{
		form.WithLoader(loader, jsonschema.NormalizeOptions{}),
		form.WithDocument(doc),
	}
	return form.NewContext(ctx, in, append(base, opts...)...)
}

// isCombined reports whether doc wraps a schema instead of being one.
func isCombined(doc map[string]any) bool {
	for _, key := range []string{"type", "properties", "$ref", "allOf", "oneOf", "anyOf"} {
		if _, ok := doc[key]; ok {
			return false
		}
	}
	_, hasSchema := doc["schema"].(map[string]any)
	_, hasForm := doc["form"]
	return hasSchema || hasForm
}

// DecodeSchema decodes a JSON or YAML schema keeping the authored property
// order.
func DecodeSchema(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return jsonschema.DecodeSchema(trimmed)
	}
	return jsonschema.DecodeSchemaYAML(trimmed)
}
