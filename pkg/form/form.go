// Package form is the runtime coordinator of a JSON Schema form. It owns the
// compiled schema, the live Control Tree and the layout tree, keeps them in
// step when items are added, removed or moved, and republishes the formatted
// data and its validation result after every change.
//
// A Form is not safe for concurrent use. Callers serialize access, the way a
// single UI event loop would.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/google/uuid"

	"github.com/goliatone/go-jsonform/pkg/control"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/layout"
	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/validation"
	"github.com/goliatone/go-jsonform/pkg/values"
)

// State is the lifecycle state of a Form.
type State int

const (
	StateUninitialized State = iota
	StateBuilding
	StateActive
	StateMutating
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateActive:
		return "active"
	case StateMutating:
		return "mutating"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is what subscribers receive after every change.
type Snapshot struct {
	Data   any                `json:"data"`
	Valid  bool               `json:"isValid"`
	Errors []validation.Error `json:"validationErrors,omitempty"`
}

var (
	// ErrInvalidState is returned by operations not allowed in the form's
	// current lifecycle state.
	ErrInvalidState = errors.New("form: invalid state")
	// ErrDisposed is returned by operations on a disposed form.
	ErrDisposed = fmt.Errorf("%w: disposed", ErrInvalidState)
)

// Form is one live form instance.
type Form struct {
	id     string
	state  State
	cfg    config
	logger *slog.Logger
	inputs Inputs

	normalized *jsonschema.Normalized
	compile    *control.State
	template   *control.Template
	tree       *control.Tree
	layout     layout.Layout
	fragments  *layout.Library
	compiled   validation.Compiled

	snapshot   Snapshot
	listeners  map[int]func(Snapshot)
	order      []int
	nextID     int
	cancelTree func()
	texts      map[string]*pongo2.Template
}

// New builds a form from inputs.
func New(inputs Inputs, opts ...Option) (*Form, error) {
	return NewContext(context.Background(), inputs, opts...)
}

// NewContext builds a form, using ctx for loading external schema
// references.
func NewContext(ctx context.Context, inputs Inputs, opts ...Option) (*Form, error) {
	c := newConfig(opts)
	if len(inputs.Options) > 0 && !c.explicit {
		o, err := OptionsFromMap(inputs.Options)
		if err != nil {
			return nil, err
		}
		c.options = o
	}
	f := &Form{
		id:        c.id,
		cfg:       c,
		logger:    c.logger,
		inputs:    inputs,
		listeners: map[int]func(Snapshot){},
		texts:     map[string]*pongo2.Template{},
	}
	if f.id == "" {
		f.id = uuid.NewString()
	}
	f.state = StateBuilding

	if name := c.options.Framework; name != "" {
		if err := c.registry.UseFramework(name); err != nil {
			return nil, fmt.Errorf("form: %w", err)
		}
	}
	for alias, target := range c.options.Widgets {
		c.registry.Alias(alias, target)
	}

	normalized, err := jsonschema.NewNormalizer(c.loader, c.normalize).
		NormalizeSchema(ctx, c.document, inputs.Schema)
	if err != nil {
		return nil, fmt.Errorf("form: normalize schema: %w", err)
	}
	f.normalized = normalized
	if err := f.build(); err != nil {
		return nil, err
	}
	f.tree = control.NewTree(f.template)

	compiled, err := c.validator.Compile(normalized.Source)
	if err != nil {
		return nil, fmt.Errorf("form: compile validator: %w", err)
	}
	f.compiled = compiled
	f.refresh()

	f.cancelTree = f.tree.Subscribe(f.onChange)
	f.state = StateActive
	f.logger.Debug("form: built", "id", f.id, "nodes", f.countNodes(), "dataMap", f.compile.DataMap.Len())
	return f, nil
}

// build compiles the template and the layout from the normalized schema and
// the initial data.
func (f *Form) build() error {
	st := control.NewState(f.normalized.Resolved)
	data := f.wrap(values.Clone(f.inputs.Data))
	tmpl, err := control.Build(st, data, control.Options{
		SetSchemaDefaults: f.cfg.options.defaultsMode(),
		Logger:            f.logger,
	})
	if err != nil {
		return fmt.Errorf("form: build template: %w", err)
	}
	var value any
	if root := control.NewControl(tmpl); root != nil {
		value = root.Value()
	}
	res, err := layout.Build(st, f.cfg.registry, f.entries(), value, layout.Options{
		FormDefaults: f.cfg.options.FormDefaults.Map(),
		AddSubmit:    f.cfg.options.submitMode(),
		Logger:       f.logger,
	})
	if err != nil {
		return fmt.Errorf("form: build layout: %w", err)
	}
	f.compile = st
	f.template = tmpl
	f.layout = res.Layout
	f.fragments = res.Library
	return nil
}

// ID returns the form ID.
func (f *Form) ID() string { return f.id }

// State returns the lifecycle state.
func (f *Form) State() State { return f.state }

// Layout returns the live layout tree.
func (f *Form) Layout() layout.Layout { return f.layout }

// Tree returns the live Control Tree.
func (f *Form) Tree() *control.Tree { return f.tree }

// Compiled returns the compile state shared by the builders.
func (f *Form) Compiled() *control.State { return f.compile }

// Normalized returns the normalized schema.
func (f *Form) Normalized() *jsonschema.Normalized { return f.normalized }

// Options returns the global options.
func (f *Form) Options() Options { return f.cfg.options }

// Data returns the latest formatted data.
func (f *Form) Data() any { return f.snapshot.Data }

// IsValid reports whether the latest data passed validation.
func (f *Form) IsValid() bool { return f.snapshot.Valid }

// ValidationErrors returns the failures of the latest validation.
func (f *Form) ValidationErrors() []validation.Error {
	return append([]validation.Error(nil), f.snapshot.Errors...)
}

// Snapshot returns the latest published state.
func (f *Form) Snapshot() Snapshot { return f.snapshot }

// Subscribe registers fn to receive a snapshot after every change, in order
// of subscription. The returned func unsubscribes.
func (f *Form) Subscribe(fn func(Snapshot)) (cancel func()) {
	if fn == nil || f.state == StateDisposed {
		return func() {}
	}
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.order = append(f.order, id)
	return func() {
		if _, ok := f.listeners[id]; !ok {
			return
		}
		delete(f.listeners, id)
		for i, other := range f.order {
			if other == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
}

// Submit revalidates the current data and returns it with its result.
// Subscribers are notified once.
func (f *Form) Submit() (Snapshot, error) {
	if f.state == StateDisposed {
		return Snapshot{}, ErrDisposed
	}
	f.tree.Revalidate()
	return f.snapshot, nil
}

// ResetAllValues rebuilds the template, the Control Tree and the layout from
// the initial inputs. Subscribers are notified once.
func (f *Form) ResetAllValues() error {
	if f.state != StateActive {
		return fmt.Errorf("%w: reset while %s", ErrInvalidState, f.state)
	}
	f.state = StateMutating
	defer func() { f.state = StateActive }()
	if err := f.build(); err != nil {
		return err
	}
	f.tree.Reset(f.template)
	return nil
}

// Dispose detaches every subscriber. Later mutations report false.
func (f *Form) Dispose() {
	if f.state == StateDisposed {
		return
	}
	if f.cancelTree != nil {
		f.cancelTree()
	}
	f.listeners = map[int]func(Snapshot){}
	f.order = nil
	f.state = StateDisposed
}

func (f *Form) onChange(control.Change) {
	if f.state == StateDisposed {
		return
	}
	f.refresh()
	for _, id := range append([]int(nil), f.order...) {
		if fn, ok := f.listeners[id]; ok {
			fn(f.snapshot)
		}
	}
}

// refresh formats the tree value and validates it from scratch.
func (f *Form) refresh() {
	formatted := f.format(f.tree.Value(), pointer.Root())
	var errs []validation.Error
	if f.compiled != nil {
		errs = f.compiled.Validate(formatted)
	}
	reported := map[string]bool{}
	for _, e := range errs {
		reported[e.DataPath] = true
	}
	for path, list := range f.tree.Errors() {
		if reported[path] {
			continue
		}
		for _, e := range list {
			errs = append(errs, validation.Error{DataPath: path, Keyword: e.Keyword, Message: e.Message})
		}
	}
	if f.normalized.RootArray {
		for i := range errs {
			errs[i].DataPath = unwrapPath(errs[i].DataPath)
		}
	}
	f.snapshot = Snapshot{Data: f.unwrap(formatted), Valid: len(errs) == 0, Errors: errs}
}

// begin moves an active form into the mutating state.
func (f *Form) begin() bool {
	if f.state != StateActive {
		return false
	}
	f.state = StateMutating
	return true
}

func (f *Form) end() { f.state = StateActive }

func (f *Form) wrap(data any) any {
	if !f.normalized.RootArray || data == nil {
		return data
	}
	return map[string]any{jsonschema.RootArrayKey: data}
}

func (f *Form) unwrap(data any) any {
	if !f.normalized.RootArray {
		return data
	}
	if m, ok := data.(map[string]any); ok {
		if list, ok := m[jsonschema.RootArrayKey]; ok {
			return list
		}
		return []any{}
	}
	return data
}

func unwrapPath(p string) string {
	prefix := "/" + jsonschema.RootArrayKey
	if p == prefix {
		return ""
	}
	return strings.TrimPrefix(p, prefix)
}

// entries returns the explicit layout, prefixing keys with the wrapper
// property when the schema root is an array.
func (f *Form) entries() []any {
	if f.inputs.Layout == nil || !f.normalized.RootArray {
		return f.inputs.Layout
	}
	out := make([]any, len(f.inputs.Layout))
	for i, e := range f.inputs.Layout {
		out[i] = prefixEntry(e)
	}
	return out
}

func prefixEntry(e any) any {
	switch typed := e.(type) {
	case string:
		return prefixKey(typed)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		if key, ok := typed["key"].(string); ok {
			out["key"] = prefixKey(key)
		}
		if items, ok := typed["items"].([]any); ok {
			list := make([]any, len(items))
			for i, item := range items {
				list[i] = prefixEntry(item)
			}
			out["items"] = list
		}
		return out
	}
	return e
}

func prefixKey(key string) string {
	switch {
	case key == layout.Wildcard || key == "":
		return key
	case strings.HasPrefix(key, "/"):
		return "/" + jsonschema.RootArrayKey + key
	case strings.HasPrefix(key, "["):
		return jsonschema.RootArrayKey + key
	}
	return jsonschema.RootArrayKey + "." + key
}

func (f *Form) countNodes() int {
	n := 0
	f.layout.Walk(func(*layout.Node) bool {
		n++
		return true
	})
	return n
}
