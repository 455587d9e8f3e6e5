package widgets

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
)

// Kind classifies how a widget participates in the form.
type Kind string

const (
	// KindInput binds one scalar value.
	KindInput Kind = "input"
	// KindChoice binds a value picked from a title map.
	KindChoice Kind = "choice"
	// KindContainer groups child nodes without adding data.
	KindContainer Kind = "container"
	// KindArray repeats its child for each array item.
	KindArray Kind = "array"
	// KindButton triggers an action.
	KindButton Kind = "button"
	// KindRef stands for a recursive reference.
	KindRef Kind = "ref"
	// KindStatic renders content without data.
	KindStatic Kind = "static"
	// KindNone renders nothing.
	KindNone Kind = "none"
)

// Widget describes a leaf control type. Rendering is left to adapters.
type Widget struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	InputType string `json:"inputType,omitempty"`
	Multiple  bool   `json:"multiple,omitempty"`
}

// BindsData reports whether nodes of this widget carry a data pointer.
func (w Widget) BindsData() bool {
	switch w.Kind {
	case KindInput, KindChoice, KindArray, KindRef:
		return true
	}
	return w.Name == "section" || w.Name == "fieldset" || w.Name == "one-of"
}

// Input is what a Matcher sees.
type Input struct {
	Schema map[string]any
	// Type is the most inclusive single type of Schema, empty when untyped.
	Type string
	// Options are the layout node options, nil when none.
	Options map[string]any
}

// Matcher decides whether a widget should handle the supplied schema.
type Matcher func(in Input) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry maps schema nodes to widgets. Explicit hints are honoured first,
// then registered rules by descending priority with ties falling back to
// registration order, then "text".
type Registry struct {
	mu         sync.RWMutex
	widgets    map[string]Widget
	aliases    map[string]string
	rules      []rule
	frameworks map[string]Framework
	active     string
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes unknown widget hints to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry constructs a registry with the built-in widgets and rules.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		widgets:    map[string]Widget{},
		aliases:    map[string]string{},
		frameworks: map[string]Framework{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(reg)
	}
	reg.registerBuiltins()
	return reg
}

// Register adds or replaces a widget.
func (r *Registry) Register(w Widget) {
	if r == nil {
		return
	}
	name := strings.TrimSpace(w.Name)
	if name == "" {
		return
	}
	w.Name = name
	if w.Kind == "" {
		w.Kind = KindInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[name] = w
}

// Alias makes alias resolve to the widget registered as target.
func (r *Registry) Alias(alias, target string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[strings.TrimSpace(alias)] = strings.TrimSpace(target)
}

// RegisterRule adds a matcher producing widget name. Higher priority values
// take precedence.
func (r *Registry) RegisterRule(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Has reports whether name (or an alias of it) is known.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Lookup returns the widget for name. Widgets of the active framework shadow
// the defaults.
func (r *Registry) Lookup(name string) (Widget, bool) {
	if r == nil {
		return Widget{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name = strings.TrimSpace(name)
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	if fw, ok := r.frameworks[r.active]; ok {
		if w, ok := fw.Widgets[name]; ok {
			if w.Name == "" {
				w.Name = name
			}
			return w, true
		}
	}
	w, ok := r.widgets[name]
	return w, ok
}

// Resolve picks the widget name for a schema node. options are the layout
// node options, which may carry a titleMap or an inline flag.
func (r *Registry) Resolve(schema map[string]any, options map[string]any) string {
	if hint := explicitWidget(schema); hint != "" {
		if r.Has(hint) {
			return checkInlineType(hint, schema, options)
		}
		r.loggerOrDiscard().Warn("widgets: unknown widget hint, using computed default", "widget", hint)
	}
	in := Input{Schema: schema, Type: EffectiveType(schema), Options: options}
	if r != nil {
		r.mu.RLock()
		rules := append([]rule(nil), r.rules...)
		r.mu.RUnlock()
		sort.SliceStable(rules, func(i, j int) bool {
			if rules[i].priority == rules[j].priority {
				return rules[i].order < rules[j].order
			}
			return rules[i].priority > rules[j].priority
		})
		for _, entry := range rules {
			if entry.match(in) {
				return checkInlineType(entry.name, schema, options)
			}
		}
	}
	return "text"
}

func (r *Registry) loggerOrDiscard() *slog.Logger {
	if r == nil || r.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.logger
}

// explicitWidget reads the widget hints a schema may carry, in precedence
// order.
func explicitWidget(schema map[string]any) string {
	v, ok := pointer.GetFirst(
		pointer.Lookup{Object: schema, Pointer: pointer.New(jsonschema.HintKey, "type")},
		pointer.Lookup{Object: schema, Pointer: pointer.New(jsonschema.HintKey, "widget", "component")},
		pointer.Lookup{Object: schema, Pointer: pointer.New(jsonschema.HintKey, "widget")},
		pointer.Lookup{Object: schema, Pointer: pointer.New("widget", "component")},
		pointer.Lookup{Object: schema, Pointer: pointer.New("widget")},
	)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// checkInlineType switches checkboxes and radios to their inline variants
// when the schema hints or layout options ask for it.
func checkInlineType(name string, schema, options map[string]any) string {
	if name != "checkboxes" && name != "radios" {
		return name
	}
	inline, _ := pointer.GetFirst(
		pointer.Lookup{Object: options, Pointer: pointer.New("inline")},
		pointer.Lookup{Object: schema, Pointer: pointer.New(jsonschema.HintKey, "inline")},
		pointer.Lookup{Object: schema, Pointer: pointer.New(jsonschema.HintKey, "options", "inline")},
	)
	if b, ok := inline.(bool); ok && b {
		return name + "-inline"
	}
	return name
}

// EffectiveType collapses a type list to the most inclusive single type.
func EffectiveType(schema map[string]any) string {
	types := jsonschema.Types(schema)
	if len(types) == 1 {
		return types[0]
	}
	if len(types) == 0 {
		return jsonschema.ValueType(schema)
	}
	has := func(t string) bool {
		for _, v := range types {
			if v == t {
				return true
			}
		}
		return false
	}
	_, hasProps := schema["properties"]
	_, hasItems := schema["items"]
	_, hasExtra := schema["additionalItems"]
	switch {
	case has("object") && hasProps:
		return "object"
	case has("array") && (hasItems || hasExtra):
		return "array"
	case has("string"):
		return "string"
	case has("number"):
		return "number"
	case has("integer"):
		return "integer"
	case has("boolean"):
		return "boolean"
	}
	return "unknown"
}

// Framework bundles widget overrides with the assets they need.
type Framework struct {
	Name        string            `json:"name"`
	Widgets     map[string]Widget `json:"widgets,omitempty"`
	Stylesheets []string          `json:"stylesheets,omitempty"`
	Scripts     []string          `json:"scripts,omitempty"`
}

// RegisterFramework adds or replaces a framework.
func (r *Registry) RegisterFramework(fw Framework) {
	if r == nil || strings.TrimSpace(fw.Name) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameworks[fw.Name] = fw
}

// UseFramework activates a registered framework. An empty name deactivates.
func (r *Registry) UseFramework(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		r.active = ""
		return nil
	}
	if _, ok := r.frameworks[name]; !ok {
		return fmt.Errorf("widgets: unknown framework %q", name)
	}
	r.active = name
	return nil
}

// ActiveFramework returns the active framework, if any.
func (r *Registry) ActiveFramework() (Framework, bool) {
	if r == nil {
		return Framework{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fw, ok := r.frameworks[r.active]
	return fw, ok
}
