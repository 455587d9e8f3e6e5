package jsonschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-jsonform/pkg/schema"
)

// OrderKey is the keyword holding the preferred property order of an object
// schema. Decoding records the authored order under it when absent.
const OrderKey = "ui:order"

// DecodeSchema parses a JSON schema payload. Numbers decode as float64 and the
// authored order of every properties object is kept under OrderKey.
func DecodeSchema(raw []byte) (map[string]any, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jsonschema: schema root must be an object, got %T", v)
	}
	return m, nil
}

// DecodeValue parses any JSON value keeping properties order the same way
// DecodeSchema does.
func DecodeValue(raw []byte) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(raw))
	v, _, err := decodeOrdered(dec)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("jsonschema: decode: trailing data after value")
	}
	return v, nil
}

// DecodeData parses a JSON payload without injecting ordering keywords.
func DecodeData(raw []byte) (any, error) {
	var v any
	if err := gojson.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("jsonschema: decode data: %w", err)
	}
	return v, nil
}

// DecodeDocument decodes a document as JSON or YAML depending on its format.
func DecodeDocument(doc Document) (map[string]any, error) {
	if doc.Format() == schema.FormatYAML {
		return DecodeSchemaYAML(doc.Raw())
	}
	return DecodeSchema(doc.Raw())
}

func decodeOrdered(dec *gojson.Decoder) (any, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	delim, ok := tok.(gojson.Delim)
	if !ok {
		return tok, nil, nil
	}
	switch delim {
	case '{':
		obj := map[string]any{}
		var keys, propsOrder []string
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, order, err := decodeOrdered(dec)
			if err != nil {
				return nil, nil, err
			}
			if _, dup := obj[key]; !dup {
				keys = append(keys, key)
			}
			obj[key] = val
			if key == "properties" {
				propsOrder = order
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		injectOrder(obj, propsOrder)
		return obj, keys, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, _, err := decodeOrdered(dec)
			if err != nil {
				return nil, nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		return arr, nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// injectOrder stores order under OrderKey when obj has a properties object
// made of sub-schemas and no explicit order. A data field that happens to be
// named "properties" holds non-schema values and is left alone.
func injectOrder(obj map[string]any, order []string) {
	if len(order) == 0 {
		return
	}
	if _, ok := obj[OrderKey]; ok {
		return
	}
	props, ok := obj["properties"].(map[string]any)
	if !ok {
		return
	}
	list := make([]any, 0, len(order))
	for _, key := range order {
		if _, isSchema := props[key].(map[string]any); !isSchema {
			return
		}
		list = append(list, key)
	}
	obj[OrderKey] = list
}

// DecodeSchemaYAML parses a YAML schema payload with the same guarantees as
// DecodeSchema.
func DecodeSchemaYAML(raw []byte) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("jsonschema: decode yaml: %w", err)
	}
	v, _, err := fromYAMLNode(&root)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: decode yaml: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jsonschema: schema root must be an object, got %T", v)
	}
	return m, nil
}

func fromYAMLNode(n *yaml.Node) (any, []string, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.MappingNode:
		obj := make(map[string]any, len(n.Content)/2)
		var keys, propsOrder []string
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			val, order, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, nil, err
			}
			if _, dup := obj[key]; !dup {
				keys = append(keys, key)
			}
			obj[key] = val
			if key == "properties" {
				propsOrder = order
			}
		}
		injectOrder(obj, propsOrder)
		return obj, keys, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, _, err := fromYAMLNode(item)
			if err != nil {
				return nil, nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, nil, err
		}
		switch num := v.(type) {
		case int:
			return float64(num), nil, nil
		case int64:
			return float64(num), nil, nil
		case uint64:
			return float64(num), nil, nil
		}
		return v, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
}
