package form

import (
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-jsonform/pkg/layout"
)

// ParseText renders a {{ ... }} template in the scope of ctx. Available
// variables:
//
//	value   the value of the node's control
//	values  the whole form data
//	key     the node name
//	idx     the 1-based position of the innermost array item
//	$index  the 0-based position of the innermost array item
//	data    the node's "data" option
func (f *Form) ParseText(text string, ctx Context) (string, error) {
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return text, nil
	}
	source := strings.ReplaceAll(text, "$index", "index")
	tpl, ok := f.texts[source]
	if !ok {
		var err error
		tpl, err = pongo2.FromString(source)
		if err != nil {
			return "", fmt.Errorf("form: parse text: %w", err)
		}
		f.texts[source] = tpl
	}
	out, err := tpl.Execute(f.textContext(ctx))
	if err != nil {
		return "", fmt.Errorf("form: render text: %w", err)
	}
	return out, nil
}

// SetTitle renders the node's legend, or its title when there is no legend,
// stores the result as the "renderedTitle" option and returns it. Array item
// titles such as "Item {{ idx }}" use it.
func (f *Form) SetTitle(ctx Context) (string, bool) {
	node := ctx.LayoutNode
	if node == nil {
		return "", false
	}
	source := node.StringOption("legend")
	if source == "" {
		source = node.StringOption("title")
	}
	if source == "" {
		return "", false
	}
	title, err := f.ParseText(source, ctx)
	if err != nil {
		f.logger.Warn("form: set title", "node", node.ID, "error", err)
		return "", false
	}
	title = layout.Sanitize(title)
	if node.Options == nil {
		node.Options = map[string]any{}
	}
	node.Options["renderedTitle"] = title
	return title, true
}

func (f *Form) textContext(ctx Context) pongo2.Context {
	value, _ := f.GetControlValue(ctx)
	index := -1
	if n := len(ctx.DataIndex); n > 0 {
		index = ctx.DataIndex[n-1]
	}
	data, _ := ctx.LayoutNode.Option("data")
	key := ""
	if ctx.LayoutNode != nil {
		key = ctx.LayoutNode.Name
	}
	return pongo2.Context{
		"value":  value,
		"values": f.snapshot.Data,
		"key":    key,
		"idx":    index + 1,
		"index":  index,
		"data":   data,
	}
}
