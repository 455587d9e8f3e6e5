package jsonform

import (
	internalloader "github.com/goliatone/go-jsonform/internal/jsonschema/loader"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/openapi"
)

// NewLoader constructs a schema loader using the internal implementation
// while keeping the concrete type hidden from consumers.
func NewLoader(options jsonschema.LoaderOptions) jsonschema.Loader {
	return internalloader.New(options)
}

// NewOpenAPIAdapter constructs an OpenAPI adapter reading documents through
// loader.
func NewOpenAPIAdapter(loader jsonschema.Loader) *openapi.Adapter {
	return openapi.NewAdapter(loader)
}
