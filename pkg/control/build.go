package control

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
	"github.com/goliatone/go-jsonform/pkg/values"
)

// SchemaDefaults selects when schema default values seed the controls.
type SchemaDefaults string

const (
	// DefaultsAuto uses schema defaults only when no initial data is given.
	DefaultsAuto   SchemaDefaults = "auto"
	DefaultsAlways SchemaDefaults = "true"
	DefaultsNever  SchemaDefaults = "false"
)

// Options configures Build.
type Options struct {
	SetSchemaDefaults SchemaDefaults
	Logger            *slog.Logger
}

// State is the compile state shared by the template and layout builders.
// Only the builders and the form's add and remove operations write to it.
type State struct {
	*jsonschema.Resolved
	DataMap *schema.DataMap
	Library *Library
}

// NewState wraps a resolved schema with an empty Data Map and Library.
func NewState(res *jsonschema.Resolved) *State {
	return &State{Resolved: res, DataMap: schema.NewDataMap(), Library: NewLibrary()}
}

// Shorten maps a data pointer to the generic key it is registered under,
// collapsing recursion back to its ancestor.
func (s *State) Shorten(p pointer.Pointer) pointer.Pointer {
	return schema.RemoveRecursiveReferences(p, s.DataRecursiveRefMap, s.ArrayMap)
}

// Build compiles the template tree for the resolved schema, seeding leaf
// values from value. It registers every data location in the Data Map and
// every repeatable fragment in the Library. A recursive slot without data
// yields a nil template.
func Build(state *State, value any, opts Options) (*Template, error) {
	if state == nil || state.Resolved == nil || state.Schema == nil {
		return nil, errors.New("control: build: schema is not resolved")
	}
	if state.DataMap == nil {
		state.DataMap = schema.NewDataMap()
	}
	if state.Library == nil {
		state.Library = NewLibrary()
	}
	b := &builder{state: state, logger: opts.Logger}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	switch opts.SetSchemaDefaults {
	case DefaultsAlways:
		b.defaults = true
	case DefaultsNever:
	case DefaultsAuto, "":
		b.defaults = value == nil
	default:
		return nil, fmt.Errorf("control: build: unknown setSchemaDefaults %q", opts.SetSchemaDefaults)
	}
	root := b.build(state.Schema, value, frame{data: pointer.Root(), schema: pointer.Root()})
	return root, nil
}

type builder struct {
	state    *State
	logger   *slog.Logger
	defaults bool
}

type frame struct {
	data     pointer.Pointer
	schema   pointer.Pointer
	required bool
}

func (b *builder) build(node map[string]any, value any, f frame) *Template {
	if node == nil {
		return nil
	}
	if ref, ok := node["$ref"].(string); ok {
		return b.buildRef(node, ref, value, f)
	}
	if value == nil && b.defaults {
		if def, ok := node["default"]; ok {
			value = values.Clone(def)
		}
	}

	t := &Template{
		Pointer:     f.data.Clone(),
		Disabled:    isDisabled(node),
		Constraints: ExtractConstraints(node),
	}
	if f.required {
		t.Constraints[ConstraintRequired] = []any{true}
	}
	entry := b.register(node, t, f)

	props, hasProps := node["properties"].(map[string]any)
	items, hasItems := node["items"]
	switch {
	case jsonschema.PrimaryType(node) == values.TypeObject && hasProps:
		t.Kind = schema.KindGroup
		obj, _ := value.(map[string]any)
		required := stringSet(node["required"])
		if entry != nil {
			entry.Required = sortStrings(keys(required))
		}
		t.Controls = map[string]*Template{}
		for _, key := range jsonschema.PropertyOrder(node) {
			child, _ := props[key].(map[string]any)
			ct := b.build(child, obj[key], frame{
				data:     f.data.Append(key),
				schema:   f.schema.Append("properties", key),
				required: required[key],
			})
			if ct == nil {
				continue
			}
			t.Controls[key] = ct
			t.Order = append(t.Order, key)
		}
	case jsonschema.PrimaryType(node) == values.TypeArray && hasItems && items != nil:
		t.Kind = schema.KindArray
		b.buildArray(node, t, entry, value, f)
	default:
		t.Kind = schema.KindLeaf
		t.Value = value
	}
	if entry != nil && entry.TemplateKind == "" {
		entry.TemplateKind = t.Kind
	}
	return t
}

// buildArray fills the tuple slots and the initial list items of an array
// template and registers the list item fragment.
func (b *builder) buildArray(node map[string]any, t *Template, entry *schema.Entry, value any, f frame) {
	list, _ := value.([]any)
	itemSchema, _ := node["items"].(map[string]any)
	extra, _ := node["additionalItems"].(map[string]any)
	listSchema, listKeyword := itemSchema, "items"
	if listSchema == nil {
		listSchema, listKeyword = extra, "additionalItems"
	}
	recursive := false
	if listSchema != nil {
		_, recursive = listSchema["$ref"]
	}
	bounds := schema.ComputeArrayBounds(node, schema.BoundsInput{
		ValueLen:  len(list),
		Required:  f.required,
		Recursive: recursive,
	})
	if entry != nil && entry.Bounds == nil {
		entry.Bounds = &bounds
	}

	if tuple, ok := node["items"].([]any); ok {
		for i := 0; i < bounds.TupleItems; i++ {
			child, _ := tuple[i].(map[string]any)
			ct := b.build(child, at(list, i), frame{
				data:   f.data.AppendIndex(i),
				schema: f.schema.Append("items").AppendIndex(i),
			})
			if ct != nil {
				t.Items = append(t.Items, ct)
			}
		}
	}
	if !bounds.HasList || listSchema == nil {
		return
	}

	itemFrame := frame{data: f.data.AppendAny(), schema: f.schema.Append(listKeyword)}
	key := b.state.Shorten(itemFrame.data)
	if !b.state.Library.Has(key) {
		b.state.Library.reserve(key)
		b.state.Library.store(key, b.fragment(listSchema, itemFrame))
	}
	for i := 0; i < bounds.ListItems; i++ {
		ct := b.build(listSchema, at(list, bounds.TupleItems+i), itemFrame)
		if ct != nil {
			t.Items = append(t.Items, ct)
		}
	}
}

// buildRef handles a recursive slot. The target fragment is registered in
// the Library once. Data present at the slot is built from the target
// schema; an empty slot yields nil.
func (b *builder) buildRef(node map[string]any, ref string, value any, f frame) *Template {
	target, err := pointer.Parse(ref)
	if err != nil {
		b.logger.Warn("control: invalid $ref", "at", f.schema.String(), "ref", ref, "error", err)
		return nil
	}
	targetNode, ok := b.targetSchema(target)
	if !ok {
		b.logger.Warn("control: unresolvable $ref", "at", f.schema.String(), "ref", ref)
		return nil
	}
	key := b.state.Shorten(f.data)
	if !b.state.Library.Has(key) {
		b.state.Library.reserve(key)
		b.state.Library.store(key, b.fragment(targetNode, frame{data: key, schema: target}))
	}
	if value == nil {
		return nil
	}
	merged := targetNode
	if len(node) > 1 {
		merged = jsonschema.MergeSchemas(targetNode, withoutKey(node, "$ref"))
	}
	return b.build(merged, value, frame{data: f.data, schema: target, required: f.required})
}

// fragment builds a repeatable template without data, so every
// instantiation starts from the schema alone.
func (b *builder) fragment(node map[string]any, f frame) *Template {
	if ref, ok := node["$ref"].(string); ok {
		target, err := pointer.Parse(ref)
		if err != nil {
			return nil
		}
		targetNode, ok := b.targetSchema(target)
		if !ok {
			return nil
		}
		node = targetNode
		f.schema = target
	}
	return b.build(node, nil, frame{data: f.data, schema: f.schema})
}

func (b *builder) targetSchema(target pointer.Pointer) (map[string]any, bool) {
	v, ok := pointer.Get(b.state.Schema, target)
	if !ok {
		if lib, found := b.state.RefLibrary[target.String()]; found {
			v, ok = lib, true
		}
	}
	m, isMap := v.(map[string]any)
	return m, ok && isMap
}

// register describes the node's data location in the Data Map unless an
// earlier visit already did. It returns nil for entries it must not touch.
func (b *builder) register(node map[string]any, t *Template, f frame) *schema.Entry {
	key := b.state.Shorten(f.data)
	entry := b.state.DataMap.Ensure(key)
	if entry.Built() {
		return nil
	}
	entry.MarkBuilt()
	entry.SchemaPointer = f.schema.Clone()
	entry.SchemaType = jsonschema.PrimaryType(node)
	entry.SchemaFormat, _ = node["format"].(string)
	entry.TemplatePointer = TemplatePointer(key)
	entry.IsRequired = f.required
	entry.Constraints = t.Constraints
	entry.Disabled = t.Disabled
	return entry
}

// TemplatePointer returns the location of the template for a generic data
// pointer inside the template tree.
func TemplatePointer(data pointer.Pointer) pointer.Pointer {
	out := make(pointer.Pointer, 0, 2*len(data))
	for _, seg := range data {
		out = append(out, pointer.Key("controls"), seg)
	}
	return out
}

func isDisabled(node map[string]any) bool {
	for _, key := range []string{"readOnly", "readonly", "disabled"} {
		if b, ok := node[key].(bool); ok && b {
			return true
		}
	}
	if hints, ok := node[jsonschema.HintKey].(map[string]any); ok {
		for _, key := range []string{"disabled", "readonly"} {
			if b, ok := hints[key].(bool); ok && b {
				return true
			}
		}
	}
	return false
}

func at(list []any, i int) any {
	if i < 0 || i >= len(list) {
		return nil
	}
	return list[i]
}

func stringSet(v any) map[string]bool {
	out := map[string]bool{}
	list, _ := v.([]any)
	for _, item := range list {
		if s, ok := item.(string); ok {
			out[s] = true
		}
	}
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
