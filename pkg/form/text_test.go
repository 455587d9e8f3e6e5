package form

import "testing"

func TestParseTextAndSetTitle(t *testing.T) {
	f := mustForm(t, `{
  "type": "object",
  "properties": {
    "people": {
      "type": "array",
      "items": {"type": "string", "title": "Person {{ idx }}: {{ value }}"}
    }
  }
}`, map[string]any{"people": []any{"Ada", "Grace"}}, WithOptions(Options{AddSubmit: ModeFalse}))
	item := f.Layout()[0].Items[1]
	ctx := Context{LayoutNode: item, DataIndex: []int{1}}

	got, ok := f.SetTitle(ctx)
	if !ok || got != "Person 2: Grace" {
		t.Fatalf("SetTitle = %q, %v", got, ok)
	}
	if item.StringOption("renderedTitle") != got || item.StringOption("title") == got {
		t.Fatalf("options = %+v", item.Options)
	}

	text, err := f.ParseText("{{ key }} #{{ $index }}", ctx)
	if err != nil || text != "people #1" {
		t.Fatalf("ParseText = %q, %v", text, err)
	}
	if plain, _ := f.ParseText("no template", ctx); plain != "no template" {
		t.Fatalf("plain text changed: %q", plain)
	}
	if _, err := f.ParseText("{{ unclosed", ctx); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestIsVisible_Condition(t *testing.T) {
	f := mustForm(t, `{
  "type": "object",
  "properties": {
    "subscribe": {"type": "boolean"},
    "email": {"type": "string", "x-schema-form": {"condition": "model.subscribe == true"}}
  }
}`, nil, WithOptions(Options{AddSubmit: ModeFalse}))
	email := Context{LayoutNode: f.Layout()[1]}
	if f.IsVisible(email, nil) {
		t.Fatalf("email visible before subscribing")
	}
	if !f.UpdateValue(Context{LayoutNode: f.Layout()[0]}, true) {
		t.Fatalf("update failed")
	}
	if !f.IsVisible(email, nil) {
		t.Fatalf("email hidden after subscribing")
	}
}
