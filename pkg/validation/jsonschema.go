package validation

import (
	"context"
	"errors"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
)

// SchemaIssue is a problem found in a schema document, located when possible.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult is the outcome of ValidateSchema.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// SchemaCheckOptions configures ValidateSchema.
type SchemaCheckOptions struct {
	// Loader resolves external refs. Nil leaves them unresolved.
	Loader    jsonschema.Loader
	Normalize jsonschema.NormalizeOptions
	// Validator compiles the normalized schema. Nil uses New().
	Validator Validator
}

// ValidateSchema checks that raw is a JSON Schema a form can be built from:
// it decodes, normalizes, and compiles against its meta-schema.
func ValidateSchema(ctx context.Context, src jsonschema.Source, raw []byte, opts SchemaCheckOptions) SchemaValidationResult {
	result := SchemaValidationResult{Valid: true}
	if src == nil {
		src = jsonschema.SourceInline("schema.json")
	}
	fail := func(err error) SchemaValidationResult {
		result.Valid = false
		result.Issues = []SchemaIssue{issueFromError(err)}
		return result
	}

	doc, err := jsonschema.NewDocument(src, raw)
	if err != nil {
		return fail(err)
	}
	normalized, err := jsonschema.NewNormalizer(opts.Loader, opts.Normalize).Normalize(ctx, doc)
	if err != nil {
		return fail(err)
	}
	validator := opts.Validator
	if validator == nil {
		validator = New()
	}
	if _, err := validator.Compile(normalized.Source); err != nil {
		return fail(err)
	}
	return result
}

func issueFromError(err error) SchemaIssue {
	if err == nil {
		return SchemaIssue{Message: "unknown error"}
	}
	var overlayErr jsonschema.OverlayError
	if errors.As(err, &overlayErr) {
		return SchemaIssue{
			Path:    overlayErr.Path,
			Field:   fieldPathFromPointer(overlayErr.Path),
			Message: strings.TrimSpace(overlayErr.Message),
		}
	}

	var schemaErr *sjsonschema.SchemaError
	if errors.As(err, &schemaErr) {
		var verr *sjsonschema.ValidationError
		if errors.As(schemaErr.Err, &verr) {
			leaf := firstLeaf(verr)
			return SchemaIssue{
				Path:    leaf.InstanceLocation,
				Field:   fieldPathFromPointer(leaf.InstanceLocation),
				Message: strings.TrimSpace(leaf.Message),
			}
		}
	}

	msg := strings.TrimSpace(err.Error())
	path := extractJSONPointer(msg)
	if path != "" {
		msg = strings.Replace(msg, " at "+path, "", 1)
	}
	for _, prefix := range []string{"validation: compile: ", "jsonschema: ", "jsonschema overlay: "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	msg = strings.TrimSpace(msg)

	return SchemaIssue{
		Path:    path,
		Field:   fieldPathFromPointer(path),
		Message: msg,
	}
}

// extractJSONPointer finds the pointer an error message ends with, either
// after " at " or as a "#/" fragment.
func extractJSONPointer(message string) string {
	var candidate string
	if _, after, ok := cutLast(message, " at "); ok {
		candidate = after
	} else if idx := strings.LastIndex(message, "#/"); idx >= 0 {
		candidate = message[idx:]
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(candidate), ".)];,"))
}

func cutLast(s, sep string) (string, string, bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

// fieldPathFromPointer turns a schema pointer into the dotted data path it
// describes: "/properties/a/items/properties/b" becomes "a.items.b".
// Combinator indices and definition names are skipped.
func fieldPathFromPointer(raw string) string {
	p, err := pointer.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	var out []string
	for i := 0; i < len(p); i++ {
		key := p[i].Key()
		switch key {
		case "properties", "$defs", "definitions":
			if i+1 < len(p) {
				i++
				if key == "properties" {
					out = append(out, p[i].Key())
				}
			}
		case "oneOf", "anyOf", "allOf":
			if i+1 < len(p) {
				if _, isIndex := p[i+1].Index(); isIndex {
					i++
				}
			}
		case "":
		default:
			out = append(out, key)
		}
	}
	return strings.Join(out, ".")
}

func firstLeaf(verr *sjsonschema.ValidationError) *sjsonschema.ValidationError {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	return verr
}
