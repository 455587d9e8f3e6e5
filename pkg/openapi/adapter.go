package openapi

import (
	"context"
	"errors"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

// Adapter fetches OpenAPI documents through a schema loader so files, fs.FS
// entries and URLs are handled the same way as JSON schema sources.
type Adapter struct {
	loader jsonschema.Loader
}

// NewAdapter constructs an Adapter around loader.
func NewAdapter(loader jsonschema.Loader) *Adapter {
	return &Adapter{loader: loader}
}

// Schema loads src and extracts the request body schema of sel.
func (a *Adapter) Schema(ctx context.Context, src jsonschema.Source, sel Selector) (map[string]any, error) {
	if a == nil || a.loader == nil {
		return nil, errors.New("openapi adapter: loader is nil")
	}
	doc, err := a.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return SchemaFromOperation(ctx, doc.Raw(), sel)
}

// Operations loads src and lists its operations.
func (a *Adapter) Operations(ctx context.Context, src jsonschema.Source) ([]Operation, error) {
	if a == nil || a.loader == nil {
		return nil, errors.New("openapi adapter: loader is nil")
	}
	doc, err := a.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return Operations(ctx, doc.Raw())
}
