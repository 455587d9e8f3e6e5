package form

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

// Inputs are the schema, layout and initial data a form is built from.
type Inputs struct {
	Schema map[string]any
	// Layout is the explicit layout description. Nil synthesizes the layout
	// from the schema.
	Layout []any
	Data   any
	// Options, when present in a combined document, are decoded through
	// OptionsFromMap unless WithOptions is given.
	Options map[string]any
}

// ErrNoSchema is returned when no schema is found in the inputs.
var ErrNoSchema = errors.New("form: no schema in inputs")

// ResolveInputs picks the schema, layout and data out of a combined input
// document. Each category accepts several historical locations; the first
// populated one wins.
//
//	schema: schema, form.schema, form.JSONSchema, form.properties
//	layout: layout, form (when a list), form.form, form.layout
//	data:   data, model, form.value, form.data, formData, form.formData
func ResolveInputs(raw map[string]any) (Inputs, error) {
	var in Inputs
	nested, _ := raw["form"].(map[string]any)

	if s, ok := raw["schema"].(map[string]any); ok && len(s) > 0 {
		in.Schema = s
	} else if s, ok := nested["schema"].(map[string]any); ok && len(s) > 0 {
		in.Schema = s
	} else if s, ok := nested["JSONSchema"].(map[string]any); ok && len(s) > 0 {
		in.Schema = s
	} else if props, ok := nested["properties"].(map[string]any); ok && len(props) > 0 {
		in.Schema = map[string]any{"type": "object", "properties": props}
		for _, key := range []string{"required", jsonschema.OrderKey, "definitions", "$defs"} {
			if v, ok := nested[key]; ok {
				in.Schema[key] = v
			}
		}
	}
	if in.Schema == nil {
		return Inputs{}, ErrNoSchema
	}

	if l, ok := raw["layout"].([]any); ok {
		in.Layout = l
	} else if l, ok := raw["form"].([]any); ok {
		in.Layout = l
	} else if l, ok := nested["form"].([]any); ok {
		in.Layout = l
	} else if l, ok := nested["layout"].([]any); ok {
		in.Layout = l
	}

	for _, candidate := range []struct {
		m   map[string]any
		key string
	}{
		{raw, "data"}, {raw, "model"}, {nested, "value"}, {nested, "data"},
		{raw, "formData"}, {nested, "formData"},
	} {
		if v, ok := candidate.m[candidate.key]; ok && v != nil {
			in.Data = v
			break
		}
	}

	if o, ok := raw["options"].(map[string]any); ok {
		in.Options = o
	} else if o, ok := nested["options"].(map[string]any); ok {
		in.Options = o
	}
	return in, nil
}

// LoadInputs reads a combined JSON or YAML input document from fsys.
func LoadInputs(fsys fs.FS, name string) (Inputs, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Inputs{}, fmt.Errorf("form: read inputs: %w", err)
	}
	var doc map[string]any
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		doc, err = jsonschema.DecodeSchemaYAML(raw)
	default:
		doc, err = jsonschema.DecodeSchema(raw)
	}
	if err != nil {
		return Inputs{}, fmt.Errorf("form: decode inputs %s: %w", name, err)
	}
	return ResolveInputs(doc)
}
