package layout

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-jsonform/pkg/control"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
	"github.com/goliatone/go-jsonform/pkg/values"
	"github.com/goliatone/go-jsonform/pkg/widgets"
)

// Wildcard is the layout entry replaced by the synthesized layout of every
// schema property the explicit entries do not reference.
const Wildcard = "*"

// AddSubmit values.
const (
	SubmitAuto   = "auto"
	SubmitAlways = "true"
	SubmitNever  = "false"
)

// Options configures Build.
type Options struct {
	// FormDefaults are merged into every node's options.
	FormDefaults map[string]any
	// AddSubmit is auto, true or false. Auto appends a submit node when the
	// layout has none.
	AddSubmit string
	Logger    *slog.Logger
}

// Result is a built layout and the fragments its add actions clone.
type Result struct {
	Layout  Layout
	Library *Library
}

// Build produces the layout for a compiled form. entries is the explicit
// layout; nil or empty means ["*"]. value is the current data, used to
// materialize one layout item per existing array item. Entries whose data
// pointer has no schema location are reported and dropped.
func Build(state *control.State, registry *widgets.Registry, entries []any, value any, opts Options) (*Result, error) {
	if state == nil || state.Resolved == nil || state.Schema == nil {
		return nil, errors.New("layout: build: schema is not resolved")
	}
	if state.DataMap == nil {
		return nil, errors.New("layout: build: data map is empty, build the control template first")
	}
	if registry == nil {
		registry = widgets.NewRegistry()
	}
	b := &builder{
		state:    state,
		registry: registry,
		opts:     opts,
		logger:   opts.Logger,
		library:  NewLibrary(),
		owners:   map[string]*Node{},
		used:     map[string]bool{},

		ownerInFragment: map[string]bool{},
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(entries) == 0 {
		entries = []any{Wildcard}
	}
	for _, e := range entries {
		b.collectUsed(e)
	}

	root := scope{base: pointer.Root(), value: value}
	var out Layout
	for _, e := range entries {
		out = append(out, b.entry(e, root)...)
	}
	b.appendSubmit(&out)
	AssignPointers(out, pointer.Root())
	b.assignFragmentPointers()
	return &Result{Layout: out, Library: b.library}, nil
}

type builder struct {
	state    *control.State
	registry *widgets.Registry
	opts     Options
	logger   *slog.Logger
	library  *Library
	// owners maps a library key to the add node its fragment is inserted at.
	// Owners in the main layout win over owners inside fragments.
	owners          map[string]*Node
	ownerInFragment map[string]bool
	depth           int
	used            map[string]bool
}

// scope resolves the data value of explicit entries inside a repeated item.
type scope struct {
	base  pointer.Pointer
	value any
}

func (s scope) valueAt(p pointer.Pointer) any {
	if !pointer.IsSubPointer(s.base, p, true) {
		return nil
	}
	rest := p[len(s.base):]
	if rest.IsGeneric() {
		return nil
	}
	v, _ := pointer.Get(s.value, rest)
	return v
}

// frame carries what building one data node needs.
type frame struct {
	data     pointer.Pointer
	schema   pointer.Pointer
	name     string
	value    any
	required bool
	inArray  bool
	// explicit layout overrides, nil when synthesized
	options  map[string]any
	typ      string
	children []any
	explicit bool
	scope    scope
}

var coreKeys = map[string]bool{
	"key": true, "type": true, "items": true, "widget": true, "options": true,
	"dataPointer": true, "name": true, "id": true, "_id": true,
}

func (b *builder) entry(e any, sc scope) []*Node {
	switch typed := e.(type) {
	case string:
		if strings.TrimSpace(typed) == Wildcard {
			return b.remaining(sc)
		}
		return b.entry(map[string]any{"key": typed}, sc)
	case map[string]any:
		return b.explicit(typed, sc)
	default:
		b.logger.Warn("layout: ignoring entry of unsupported type", "entry", e)
		return nil
	}
}

// explicit normalises one layout object and builds it.
func (b *builder) explicit(m map[string]any, sc scope) []*Node {
	opts := map[string]any{}
	if o, ok := m["options"].(map[string]any); ok {
		for k, v := range o {
			opts[k] = values.Clone(v)
		}
	}
	for k, v := range m {
		if !coreKeys[k] {
			opts[k] = values.Clone(v)
		}
	}
	if legend, ok := opts["legend"]; ok {
		if _, has := opts["title"]; !has {
			opts["title"] = legend
		}
		delete(opts, "legend")
	}
	for _, alias := range []string{"errorMessages", "validationMessage"} {
		if msg, ok := opts[alias]; ok {
			if _, has := opts["validationMessages"]; !has {
				opts["validationMessages"] = msg
			}
			delete(opts, alias)
		}
	}

	typ, _ := m["type"].(string)
	if typ == "" {
		switch w := m["widget"].(type) {
		case string:
			typ = w
		case map[string]any:
			typ, _ = w["component"].(string)
		}
	}
	children, hasChildren := m["items"].([]any)

	key, hasKey := b.entryPointer(m)
	if !hasKey && hasChildren && b.isArrayType(typ) {
		key, hasKey = arrayPointerFromChildren(children)
	}
	if !hasKey {
		return []*Node{b.container(typ, opts, children, sc)}
	}

	entry, _, ok := b.state.DataMap.Lookup(key, b.state.DataRecursiveRefMap, b.state.ArrayMap)
	if !ok {
		b.logger.Warn("layout: dropping entry without schema location", "pointer", key.String())
		return nil
	}
	node, ok := b.schemaAt(entry.SchemaPointer)
	if !ok {
		b.logger.Warn("layout: dropping entry with unresolvable schema", "pointer", key.String())
		return nil
	}
	return b.fromSchema(node, frame{
		data:     key,
		schema:   entry.SchemaPointer,
		name:     nameOf(key),
		value:    sc.valueAt(key),
		required: entry.IsRequired,
		options:  opts,
		typ:      typ,
		children: children,
		explicit: hasChildren,
		scope:    sc,
	})
}

func (b *builder) entryPointer(m map[string]any) (pointer.Pointer, bool) {
	for _, field := range []string{"key", "dataPointer"} {
		switch k := m[field].(type) {
		case string:
			if strings.TrimSpace(k) == "" {
				continue
			}
			p, err := pointer.ParseObjectPath(k)
			if err != nil {
				b.logger.Warn("layout: invalid key", "key", k, "error", err)
				continue
			}
			return p, true
		case []any:
			p, err := pointer.From(k)
			if err != nil {
				b.logger.Warn("layout: invalid key", "key", k, "error", err)
				continue
			}
			return p, true
		}
	}
	return nil, false
}

func (b *builder) isArrayType(typ string) bool {
	w, ok := b.registry.Lookup(typ)
	return ok && w.Kind == widgets.KindArray
}

// arrayPointerFromChildren derives an array's pointer from the first child
// key containing a list placeholder.
func arrayPointerFromChildren(children []any) (pointer.Pointer, bool) {
	for _, child := range children {
		var raw string
		switch c := child.(type) {
		case string:
			raw = c
		case map[string]any:
			raw, _ = c["key"].(string)
		}
		if raw == "" {
			continue
		}
		p, err := pointer.ParseObjectPath(raw)
		if err != nil {
			continue
		}
		for i, seg := range p {
			if seg.IsWildcard() {
				return p[:i].Clone(), true
			}
		}
	}
	return nil, false
}

// container builds a node that carries no data, such as a section, tabs,
// help text or a button.
func (b *builder) container(typ string, opts map[string]any, children []any, sc scope) *Node {
	if typ == "" {
		typ = widgets.WidgetSection
	}
	if !b.registry.Has(typ) {
		b.logger.Warn("layout: unknown widget type, using section", "type", typ)
		typ = widgets.WidgetSection
	}
	w, _ := b.registry.Lookup(typ)
	sanitizeOptions(opts)
	n := &Node{ID: uuid.NewString(), Type: typ, Options: opts, Widget: w}
	for _, child := range children {
		n.Items = append(n.Items, b.entry(child, sc)...)
	}
	return n
}

// remaining synthesizes the root properties no explicit entry references.
func (b *builder) remaining(sc scope) []*Node {
	root := b.state.Schema
	props, ok := root["properties"].(map[string]any)
	if !ok || jsonschema.PrimaryType(root) != values.TypeObject {
		if b.used[""] {
			return nil
		}
		b.used[""] = true
		return b.fromSchema(root, frame{data: pointer.Root(), schema: pointer.Root(), value: sc.value})
	}
	var out []*Node
	required := stringSet(root["required"])
	for _, key := range jsonschema.PropertyOrder(root) {
		if b.used[key] {
			continue
		}
		b.used[key] = true
		child, _ := props[key].(map[string]any)
		data := pointer.New(key)
		out = append(out, b.fromSchema(child, frame{
			data:     data,
			schema:   pointer.New("properties", key),
			name:     key,
			value:    sc.valueAt(data),
			required: required[key],
		})...)
	}
	return out
}

// collectUsed records the root property every explicit key starts with, so
// the wildcard only expands to the rest.
func (b *builder) collectUsed(e any) {
	m, ok := e.(map[string]any)
	if !ok {
		if s, isString := e.(string); isString && strings.TrimSpace(s) != Wildcard {
			m = map[string]any{"key": s}
		} else {
			return
		}
	}
	if p, ok := b.entryPointer(m); ok {
		if len(p) == 0 {
			b.used[""] = true
		} else {
			b.used[p[0].Key()] = true
		}
	}
	if items, ok := m["items"].([]any); ok {
		for _, item := range items {
			b.collectUsed(item)
		}
	}
}

// fromSchema builds the nodes for one data location. It yields one node,
// except for a recursive slot outside an array, which yields the slot's
// content when data is present followed by its add node.
func (b *builder) fromSchema(node map[string]any, f frame) []*Node {
	if node == nil {
		return nil
	}
	if ref, ok := node["$ref"].(string); ok {
		return b.recursiveSlot(node, ref, f)
	}
	n := b.newNode(node, f)

	props, hasProps := node["properties"].(map[string]any)
	switch {
	case n.Widget.Kind == widgets.KindArray && jsonschema.PrimaryType(node) == values.TypeArray:
		b.buildArray(node, n, f)
	case jsonschema.PrimaryType(node) == values.TypeObject && hasProps && n.Widget.Kind == widgets.KindContainer:
		if f.explicit {
			for _, child := range f.children {
				n.Items = append(n.Items, b.entry(child, f.scope)...)
			}
			break
		}
		required := stringSet(node["required"])
		obj, _ := f.value.(map[string]any)
		for _, key := range jsonschema.PropertyOrder(node) {
			child, _ := props[key].(map[string]any)
			n.Items = append(n.Items, b.fromSchema(child, frame{
				data:     f.data.Append(key),
				schema:   f.schema.Append("properties", key),
				name:     key,
				value:    obj[key],
				required: required[key],
			})...)
		}
	}
	return []*Node{n}
}

// recursiveSlot registers the fragment a recursive reference clones and
// builds the slot's current content.
func (b *builder) recursiveSlot(node map[string]any, ref string, f frame) []*Node {
	target, err := pointer.Parse(ref)
	if err != nil {
		b.logger.Warn("layout: invalid $ref", "at", f.schema.String(), "ref", ref)
		return nil
	}
	targetNode, ok := b.schemaAt(target)
	if !ok {
		b.logger.Warn("layout: unresolvable $ref", "at", f.schema.String(), "ref", ref)
		return nil
	}
	merged := targetNode
	if len(node) > 1 {
		merged = jsonschema.MergeSchemas(targetNode, without(node, "$ref"))
	}
	key := b.state.Shorten(f.data)
	b.ensureFragment(key, func() *Node {
		frag := b.fromSchema(merged, frame{data: f.data, schema: target, name: f.name, inArray: f.inArray})
		if len(frag) == 0 {
			return nil
		}
		frag[0].RecursiveReference = true
		if f.inArray {
			return b.markListItem(frag[0], true)
		}
		return frag[0]
	})

	var out []*Node
	if f.value != nil {
		for _, n := range b.fromSchema(merged, frame{
			data: f.data, schema: target, name: f.name, value: f.value,
			required: f.required, inArray: f.inArray, options: f.options,
		}) {
			n.RecursiveReference = true
			out = append(out, n)
		}
	}
	if f.inArray {
		return out
	}
	add := b.addNode(key, f.data, b.addTitle(f.options, merged, nil, f.name))
	add.RecursiveReference = true
	add.Options["maxItems"] = 1
	return append(out, add)
}

// buildArray adds tuple items, the initial list items and the add node to
// an array node.
func (b *builder) buildArray(node map[string]any, n *Node, f frame) {
	list, _ := f.value.([]any)
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
	n.Options["minItems"] = bounds.MinItems
	n.Options["maxItems"] = bounds.MaxItems
	n.Options["tupleItems"] = bounds.TupleItems

	if tuple, ok := node["items"].([]any); ok {
		for i := 0; i < bounds.TupleItems; i++ {
			child, _ := tuple[i].(map[string]any)
			data := f.data.AppendIndex(i)
			for _, item := range b.arrayItem(child, frame{
				data:   data,
				schema: f.schema.Append("items").AppendIndex(i),
				name:   f.name,
				value:  at(list, i),
			}, f) {
				item.ArrayItem, item.ArrayItemType = true, ItemTuple
				n.Items = append(n.Items, item)
			}
		}
	}
	if !bounds.HasList || listSchema == nil {
		return
	}

	itemFrame := frame{
		data:    f.data.AppendAny(),
		schema:  f.schema.Append(listKeyword),
		name:    f.name,
		inArray: true,
	}
	key := b.state.Shorten(itemFrame.data)
	if !recursive {
		b.ensureFragment(key, func() *Node {
			items := b.arrayItem(listSchema, itemFrame, f)
			if len(items) == 0 {
				return nil
			}
			return b.markListItem(items[0], false)
		})
	} else {
		// The recursive slot registers the fragment of its target.
		b.arrayItem(listSchema, itemFrame, f)
	}
	for i := 0; i < bounds.ListItems; i++ {
		item := itemFrame
		item.value = at(list, bounds.TupleItems+i)
		for _, built := range b.arrayItem(listSchema, item, f) {
			n.Items = append(n.Items, b.markListItem(built, recursive))
		}
	}
	add := b.addNode(key, itemFrame.data, b.addTitle(f.options, listSchema, node, f.name))
	add.RecursiveReference = recursive
	add.Options["maxItems"] = bounds.MaxItems
	add.Options["minItems"] = bounds.MinItems
	add.Options["tupleItems"] = bounds.TupleItems
	n.Items = append(n.Items, add)
}

// arrayItem builds one array item, from explicit child entries when the
// array node listed them.
func (b *builder) arrayItem(node map[string]any, item frame, array frame) []*Node {
	if !array.explicit {
		return b.fromSchema(node, item)
	}
	sc := scope{base: item.data, value: item.value}
	var children []*Node
	for _, child := range array.children {
		children = append(children, b.entry(child, sc)...)
	}
	if len(children) == 1 && children[0].DataPointer.Equal(item.data) {
		return children
	}
	w, _ := b.registry.Lookup(widgets.WidgetSection)
	wrapper := &Node{
		ID:          uuid.NewString(),
		Name:        item.name,
		Type:        widgets.WidgetSection,
		DataType:    jsonschema.PrimaryType(node),
		DataPointer: item.data.Clone(),
		Options:     map[string]any{},
		Items:       children,
		Widget:      w,
		bound:       true,
	}
	return []*Node{wrapper}
}

func (b *builder) markListItem(n *Node, recursive bool) *Node {
	n.ArrayItem, n.ArrayItemType = true, ItemList
	if recursive {
		n.RecursiveReference = true
	}
	if _, ok := n.Options["removable"]; !ok {
		n.Options["removable"] = true
	}
	return n
}

func (b *builder) ensureFragment(key pointer.Pointer, build func() *Node) {
	if b.library.Has(key) {
		return
	}
	b.library.reserve(key)
	b.depth++
	frag := build()
	b.depth--
	b.library.store(key, frag)
}

func (b *builder) addNode(key, data pointer.Pointer, title string) *Node {
	w, _ := b.registry.Lookup(widgets.WidgetRef)
	n := &Node{
		ID:          uuid.NewString(),
		Name:        nameOf(data),
		Type:        widgets.WidgetRef,
		DataPointer: data.Clone(),
		Ref:         key.Clone(),
		Options:     map[string]any{"title": Sanitize(title)},
		Widget:      w,
		bound:       true,
	}
	k := key.String()
	if _, ok := b.owners[k]; !ok || (b.ownerInFragment[k] && b.depth == 0) {
		b.owners[k] = n
		b.ownerInFragment[k] = b.depth > 0
	}
	return n
}

// addTitle derives the add action label: an explicit override, the item's
// own title, the enclosing schema's title, then the property name.
func (b *builder) addTitle(opts map[string]any, item, enclosing map[string]any, name string) string {
	if s, ok := opts["add"].(string); ok && s != "" {
		return s
	}
	for _, candidate := range []map[string]any{item, enclosing} {
		if s, ok := candidate["title"].(string); ok && s != "" {
			return "Add " + s
		}
	}
	if label := DefaultLabel(name); label != "" {
		return "Add " + label
	}
	return "Add"
}

// newNode creates the node for a schema location with its options and
// resolved widget type.
func (b *builder) newNode(node map[string]any, f frame) *Node {
	opts := map[string]any{}
	for k, v := range b.opts.FormDefaults {
		opts[k] = values.Clone(v)
	}
	schemaOptions(node, opts)
	for k, v := range f.options {
		opts[k] = v
	}
	if f.required {
		opts["required"] = true
	}
	if _, ok := opts["titleMap"]; !ok {
		if tm, ok := titleMap(node); ok {
			opts["titleMap"] = tm
		}
	}

	typ := ""
	if f.typ != "" {
		if b.registry.Has(f.typ) {
			typ = f.typ
		} else {
			b.logger.Warn("layout: unknown widget type, using computed default",
				"type", f.typ, "pointer", f.data.String())
		}
	}
	if typ == "" {
		typ = b.registry.Resolve(node, opts)
	}
	w, _ := b.registry.Lookup(typ)
	sanitizeOptions(opts)

	if e, ok := b.state.DataMap.Get(b.state.Shorten(f.data)); ok && e.InputType == "" {
		e.InputType = typ
	}
	return &Node{
		ID:          uuid.NewString(),
		Name:        f.name,
		Type:        typ,
		DataType:    jsonschema.PrimaryType(node),
		DataPointer: f.data.Clone(),
		Options:     opts,
		Widget:      w,
		bound:       true,
	}
}

var schemaOptionKeys = []string{
	"title", "description", "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum",
	"multipleOf", "minLength", "maxLength", "pattern", "format", "minItems", "maxItems",
	"uniqueItems", "minProperties", "maxProperties", "enum", "default",
}

// schemaOptions copies display related schema keywords and UI hints.
func schemaOptions(node map[string]any, opts map[string]any) {
	for _, key := range schemaOptionKeys {
		if v, ok := node[key]; ok {
			opts[key] = values.Clone(v)
		}
	}
	for _, key := range []string{"readOnly", "readonly"} {
		if v, ok := node[key].(bool); ok && v {
			opts["readonly"] = true
		}
	}
	if hints, ok := node[jsonschema.HintKey].(map[string]any); ok {
		for k, v := range hints {
			if k == "type" || k == "widget" {
				continue
			}
			opts[k] = values.Clone(v)
		}
	}
}

// titleMap builds the selectable options of a node from oneOf consts or
// enum, looking at the item schema for arrays.
func titleMap(node map[string]any) ([]any, bool) {
	source := node
	if jsonschema.PrimaryType(node) == values.TypeArray {
		if items, ok := node["items"].(map[string]any); ok {
			source = items
		}
	}
	entries, ok := jsonschema.TitleMapFromOneOf(source)
	if !ok {
		entries, ok = jsonschema.TitleMapFromEnum(source)
	}
	if !ok {
		return nil, false
	}
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{"name": e.Name, "value": e.Value}
	}
	return out, true
}

func (b *builder) appendSubmit(out *Layout) {
	switch b.opts.AddSubmit {
	case SubmitNever:
		return
	case SubmitAlways:
	default:
		found := false
		out.Walk(func(n *Node) bool {
			if n.Type == widgets.WidgetSubmit {
				found = true
			}
			return !found
		})
		if found {
			return
		}
	}
	w, _ := b.registry.Lookup(widgets.WidgetSubmit)
	*out = append(*out, &Node{
		ID:      uuid.NewString(),
		Type:    widgets.WidgetSubmit,
		Options: map[string]any{"title": "Submit"},
		Widget:  w,
	})
}

// assignFragmentPointers roots every fragment at the layout pointer of the
// add node that inserts it. Owners inside other fragments are resolved once
// those fragments have pointers.
func (b *builder) assignFragmentPointers() {
	pending := b.library.Keys()
	for round := 0; len(pending) > 0 && round <= len(b.owners); round++ {
		var next []string
		for _, key := range pending {
			owner := b.owners[key]
			frag, _ := b.library.Get(pointer.MustParse(key))
			if owner == nil || frag == nil {
				continue
			}
			if owner.LayoutPointer == nil {
				next = append(next, key)
				continue
			}
			frag.LayoutPointer = owner.LayoutPointer.Clone()
			assignPointers(frag.Items, frag.LayoutPointer, frag.Widget.Kind == widgets.KindArray)
		}
		pending = next
	}
}

func (b *builder) schemaAt(p pointer.Pointer) (map[string]any, bool) {
	v, ok := pointer.Get(b.state.Schema, p)
	if !ok {
		if lib, found := b.state.RefLibrary[p.String()]; found {
			v, ok = lib, true
		}
	}
	m, isMap := v.(map[string]any)
	return m, ok && isMap
}

func nameOf(p pointer.Pointer) string {
	for i := len(p) - 1; i >= 0; i-- {
		if !p[i].IsWildcard() {
			if _, isIndex := p[i].Index(); !isIndex || i == 0 {
				return p[i].Key()
			}
		}
	}
	return ""
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

func without(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
