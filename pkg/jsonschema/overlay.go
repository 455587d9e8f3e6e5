package jsonschema

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

const overlaySchemaID = "x-ui-overlay/v1"

// HintKey is the schema extension carrying form hints.
const HintKey = "x-schema-form"

// Overlay is a parsed UI overlay document. It attaches form hints to schema
// nodes without editing the schema itself.
type Overlay struct {
	Overrides []OverlayOverride
}

// OverlayOverride targets a schema node by pointer and supplies hint
// extensions.
type OverlayOverride struct {
	Path       pointer.Pointer
	Extensions map[string]any
}

// OverlayError reports malformed overlay documents or invalid override paths.
type OverlayError struct {
	Path    string
	Message string
}

func (e OverlayError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "invalid overlay"
	}
	if strings.TrimSpace(e.Path) == "" {
		return "jsonschema overlay: " + msg
	}
	return fmt.Sprintf("jsonschema overlay: %s (%s)", msg, e.Path)
}

// ParseOverlay parses a raw overlay document. Each override names a schema
// pointer under "path" and carries an x-schema-form object and/or
// x-schema-form-* keys.
func ParseOverlay(raw []byte) (Overlay, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Overlay{}, OverlayError{Message: "overlay document is empty"}
	}
	decoded, err := DecodeData(raw)
	if err != nil {
		return Overlay{}, OverlayError{Message: fmt.Sprintf("parse overlay: %v", err)}
	}
	payload, ok := decoded.(map[string]any)
	if !ok {
		return Overlay{}, OverlayError{Message: "overlay document must be an object"}
	}

	id := strings.TrimSuffix(strings.TrimSpace(readString(payload, "$schema")), "#")
	if id == "" {
		return Overlay{}, OverlayError{Message: "$schema is required"}
	}
	if id != overlaySchemaID {
		return Overlay{}, OverlayError{Message: fmt.Sprintf("unsupported $schema %q", id)}
	}

	rawOverrides, ok := payload["overrides"]
	if !ok {
		return Overlay{}, nil
	}
	list, ok := rawOverrides.([]any)
	if !ok {
		return Overlay{}, OverlayError{Message: "overrides must be an array"}
	}

	overrides := make([]OverlayOverride, 0, len(list))
	for idx, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return Overlay{}, OverlayError{Message: fmt.Sprintf("overrides[%d] must be an object", idx)}
		}
		rawPath := strings.TrimSpace(readString(entry, "path"))
		if rawPath == "" {
			return Overlay{}, OverlayError{Message: fmt.Sprintf("overrides[%d].path is required", idx)}
		}
		if !strings.HasPrefix(rawPath, "#") && !strings.HasPrefix(rawPath, "/") {
			return Overlay{}, OverlayError{Path: rawPath, Message: "path must be a JSON pointer"}
		}
		path, err := pointer.Parse(rawPath)
		if err != nil {
			return Overlay{}, OverlayError{Path: rawPath, Message: err.Error()}
		}

		extensions := make(map[string]any)
		for key, value := range entry {
			switch {
			case key == HintKey:
				if _, ok := value.(map[string]any); !ok {
					return Overlay{}, OverlayError{Path: rawPath, Message: HintKey + " must be an object"}
				}
				extensions[key] = value
			case strings.HasPrefix(key, HintKey+"-"):
				extensions[key] = value
			}
		}
		if len(extensions) == 0 {
			continue
		}
		overrides = append(overrides, OverlayOverride{Path: path, Extensions: extensions})
	}
	return Overlay{Overrides: overrides}, nil
}

// ApplyOverlay writes the overrides into payload in place. Hint objects are
// merged key by key into existing ones.
func ApplyOverlay(payload map[string]any, overlay Overlay) error {
	if payload == nil || len(overlay.Overrides) == 0 {
		return nil
	}
	for _, override := range overlay.Overrides {
		node, ok := pointer.Get(payload, override.Path)
		if !ok {
			return OverlayError{Path: override.Path.String(), Message: "path not found"}
		}
		target, ok := node.(map[string]any)
		if !ok {
			return OverlayError{Path: override.Path.String(), Message: "path does not resolve to an object"}
		}
		for key, value := range override.Extensions {
			if key == HintKey {
				hints, _ := value.(map[string]any)
				mergeExtensionMap(target, key, hints)
				continue
			}
			target[key] = value
		}
	}
	return nil
}

func mergeExtensionMap(target map[string]any, key string, override map[string]any) {
	if target == nil || override == nil {
		return
	}
	existing, _ := target[key].(map[string]any)
	merged := make(map[string]any, len(existing)+len(override))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	target[key] = merged
}
