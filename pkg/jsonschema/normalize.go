package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// RootArrayKey is the property a root-level array schema is wrapped under.
const RootArrayKey = "1"

var knownDialects = map[string]string{
	"http://json-schema.org/draft-03/schema":       "draft-03",
	"http://json-schema.org/draft-04/schema":       "draft-04",
	"http://json-schema.org/draft-06/schema":       "draft-06",
	"http://json-schema.org/draft-07/schema":       "draft-07",
	"https://json-schema.org/draft/2019-09/schema": "2019-09",
	"https://json-schema.org/draft/2020-12/schema": "2020-12",
}

// Normalizer runs the schema pipeline: overlay, legacy conversion, root
// array wrapping, bundling and reference resolution.
type Normalizer struct {
	loader Loader
	opts   NormalizeOptions
}

// NormalizeOptions configures a Normalizer.
type NormalizeOptions struct {
	Bundle BundleOptions
	// Overlay, when set, is applied to the decoded schema first.
	Overlay *Overlay
	Logger  *slog.Logger
}

// Normalized is a resolved schema plus the facts the builders need about
// the pipeline that produced it.
type Normalized struct {
	*Resolved
	// Source is the schema after conversion and bundling, before resolution.
	Source map[string]any
	// Dialect is the short dialect name, empty when $schema is absent.
	Dialect string
	// Converted is set when legacy constructs were rewritten.
	Converted bool
	// RootArray is set when the root array schema was wrapped.
	RootArray bool
}

// NewNormalizer constructs a normalizer. A nil loader disables external refs.
func NewNormalizer(loader Loader, opts NormalizeOptions) *Normalizer {
	if opts.Bundle.Logger == nil {
		opts.Bundle.Logger = opts.Logger
	}
	return &Normalizer{loader: loader, opts: opts}
}

// Load fetches the raw schema document.
func (n *Normalizer) Load(ctx context.Context, src Source) (Document, error) {
	if n == nil || n.loader == nil {
		return Document{}, errors.New("jsonschema: normalizer has no loader")
	}
	doc, err := n.loader.Load(ctx, src)
	if err != nil {
		return Document{}, err
	}
	return NewDocument(doc.Source(), doc.Raw())
}

// Detect reports whether raw looks like a JSON Schema document.
func (n *Normalizer) Detect(raw []byte) bool {
	return detectJSONSchema(raw)
}

// Normalize decodes doc and runs the pipeline on it.
func (n *Normalizer) Normalize(ctx context.Context, doc Document) (*Normalized, error) {
	payload, err := DecodeDocument(doc)
	if err != nil {
		return nil, err
	}
	return n.NormalizeSchema(ctx, doc, payload)
}

// NormalizeSchema runs the pipeline on an already decoded schema. doc only
// locates relative external refs and may be the zero Document.
func (n *Normalizer) NormalizeSchema(ctx context.Context, doc Document, payload map[string]any) (*Normalized, error) {
	if payload == nil {
		return nil, errors.New("jsonschema: schema is nil")
	}
	logger := loggerOrDiscard(n.opts.Logger)
	dialect, err := validateDialect(payload)
	if err != nil {
		return nil, err
	}
	if dialect == "" {
		if s := readString(payload, "$schema"); s != "" {
			logger.Warn("jsonschema: unknown dialect, treating as draft-04", "schema", s)
		}
	}
	payload = cloneAny(payload).(map[string]any)
	if n.opts.Overlay != nil {
		if err := ApplyOverlay(payload, *n.opts.Overlay); err != nil {
			return nil, err
		}
	}
	converted, changed := convertLegacyRoot(payload)
	out := &Normalized{Dialect: dialect, Converted: changed}
	converted, out.RootArray = WrapRootArray(converted)
	bundled, err := Bundle(ctx, n.loader, doc, converted, n.opts.Bundle)
	if err != nil {
		return nil, err
	}
	out.Source = bundled
	out.Resolved, err = ResolveReferences(bundled, ResolveOptions{Logger: logger})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WrapRootArray wraps an array root schema as property RootArrayKey of an
// object schema, moving definitions to the new root and repointing refs into
// the array. It reports whether wrapping happened.
func WrapRootArray(root map[string]any) (map[string]any, bool) {
	if PrimaryType(root) != "array" {
		return root, false
	}
	inner := make(map[string]any, len(root))
	wrapped := map[string]any{"type": "object", OrderKey: []any{RootArrayKey}}
	for k, v := range root {
		switch k {
		case "definitions", "$defs", "$schema", "id", "$id":
			wrapped[k] = v
		default:
			inner[k] = v
		}
	}
	inner = repointRefs(inner)
	wrapped["properties"] = map[string]any{RootArrayKey: inner}
	return wrapped, true
}

func repointRefs(node map[string]any) map[string]any {
	out, _ := cloneAny(node).(map[string]any)
	var walk func(v any)
	walk = func(v any) {
		switch typed := v.(type) {
		case map[string]any:
			if ref, ok := typed["$ref"].(string); ok && strings.HasPrefix(ref, "#") &&
				!strings.HasPrefix(ref, "#/definitions") && !strings.HasPrefix(ref, "#/$defs") {
				typed["$ref"] = "#/properties/" + RootArrayKey + strings.TrimPrefix(ref, "#")
			}
			for _, child := range typed {
				walk(child)
			}
		case []any:
			for _, child := range typed {
				walk(child)
			}
		}
	}
	walk(out)
	return out
}

// validateDialect returns the short name of a known $schema dialect. An
// absent or unknown dialect yields "".
func validateDialect(payload map[string]any) (string, error) {
	raw, present := payload["$schema"]
	if !present {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("jsonschema: $schema must be a string, got %T", raw)
	}
	value = strings.TrimSuffix(strings.TrimSpace(value), "#")
	if name, ok := knownDialects[value]; ok {
		return name, nil
	}
	if strings.HasPrefix(value, "https://") {
		if name, ok := knownDialects["http://"+strings.TrimPrefix(value, "https://")]; ok {
			return name, nil
		}
	} else if strings.HasPrefix(value, "http://") {
		if name, ok := knownDialects["https://"+strings.TrimPrefix(value, "http://")]; ok {
			return name, nil
		}
	}
	return "", nil
}

func detectJSONSchema(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	payload, err := DecodeSchema(trimmed)
	if err != nil {
		return false
	}
	if _, ok := payload["openapi"]; ok {
		return false
	}
	if _, ok := payload["swagger"]; ok {
		return false
	}
	for _, key := range []string{"$schema", "$id", "id", "$defs", "definitions", "properties", "type", "items"} {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}
