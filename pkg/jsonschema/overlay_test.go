package jsonschema

import (
	"testing"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

func TestOverlayApply_MergesHints(t *testing.T) {
	payload, err := DecodeSchema([]byte(`{
  "type": "object",
  "properties": {
    "title": {
      "type": "string",
      "x-schema-form": { "title": "Inline", "type": "textarea" }
    }
  }
}`))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}

	overlay, err := ParseOverlay([]byte(`{
  "$schema": "x-ui-overlay/v1",
  "overrides": [
    {
      "path": "/properties/title",
      "x-schema-form": { "title": "Overlay" }
    }
  ]
}`))
	if err != nil {
		t.Fatalf("parse overlay: %v", err)
	}
	if err := ApplyOverlay(payload, overlay); err != nil {
		t.Fatalf("apply overlay: %v", err)
	}

	props := payload["properties"].(map[string]any)
	title := props["title"].(map[string]any)
	hints := title[HintKey].(map[string]any)
	if got := hints["title"]; got != "Overlay" {
		t.Fatalf("expected overlay title, got %#v", got)
	}
	if got := hints["type"]; got != "textarea" {
		t.Fatalf("expected widget preserved, got %#v", got)
	}
}

func TestOverlayApply_InvalidPath(t *testing.T) {
	payload := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
		},
	}
	overlay := Overlay{
		Overrides: []OverlayOverride{
			{
				Path:       pointer.New("properties", "missing"),
				Extensions: map[string]any{HintKey: map[string]any{"title": "Missing"}},
			},
		},
	}
	if err := ApplyOverlay(payload, overlay); err == nil {
		t.Fatalf("expected invalid path error")
	}
}

func TestParseOverlay_RejectsUnknownSchema(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "  "},
		{name: "missing schema", raw: `{"overrides":[]}`},
		{name: "other schema", raw: `{"$schema":"x-ui-overlay/v2"}`},
		{name: "relative path", raw: `{"$schema":"x-ui-overlay/v1","overrides":[{"path":"properties/a","x-schema-form":{}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseOverlay([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
