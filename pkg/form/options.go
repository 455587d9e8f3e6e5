package form

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-jsonform/pkg/control"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/layout"
	"github.com/goliatone/go-jsonform/pkg/validation"
	"github.com/goliatone/go-jsonform/pkg/visibility"
	"github.com/goliatone/go-jsonform/pkg/visibility/expr"
	"github.com/goliatone/go-jsonform/pkg/widgets"
)

// Mode is a tri-state option accepting "auto", true or false.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeTrue  Mode = "true"
	ModeFalse Mode = "false"
)

// UnmarshalYAML accepts a boolean or one of the mode names. JSON documents
// are decoded through YAML as well.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("form: mode must be a scalar, line %d", value.Line)
	}
	raw := value.Value
	if b, err := strconv.ParseBool(raw); err == nil {
		*m = ModeFalse
		if b {
			*m = ModeTrue
		}
		return nil
	}
	switch Mode(raw) {
	case ModeAuto, "":
		*m = ModeAuto
	case ModeTrue, ModeFalse:
		*m = Mode(raw)
	default:
		return fmt.Errorf("form: unknown mode %q", raw)
	}
	return nil
}

// FormDefaults are the per-node defaults merged into every layout node.
// Unset fields are left out.
type FormDefaults struct {
	Addable            *bool `yaml:"addable" json:"addable,omitempty"`
	Orderable          *bool `yaml:"orderable" json:"orderable,omitempty"`
	Removable          *bool `yaml:"removable" json:"removable,omitempty"`
	AllowExponents     *bool `yaml:"allowExponents" json:"allowExponents,omitempty"`
	EnableErrorState   *bool `yaml:"enableErrorState" json:"enableErrorState,omitempty"`
	EnableSuccessState *bool `yaml:"enableSuccessState" json:"enableSuccessState,omitempty"`
	Feedback           *bool `yaml:"feedback" json:"feedback,omitempty"`
	Notitle            *bool `yaml:"notitle" json:"notitle,omitempty"`
	Readonly           *bool `yaml:"readonly" json:"readonly,omitempty"`
}

// Map returns the set fields keyed by option name.
func (d FormDefaults) Map() map[string]any {
	out := map[string]any{}
	set := func(key string, v *bool) {
		if v != nil {
			out[key] = *v
		}
	}
	set("addable", d.Addable)
	set("orderable", d.Orderable)
	set("removable", d.Removable)
	set("allowExponents", d.AllowExponents)
	set("enableErrorState", d.EnableErrorState)
	set("enableSuccessState", d.EnableSuccessState)
	set("feedback", d.Feedback)
	set("notitle", d.Notitle)
	set("readonly", d.Readonly)
	return out
}

// Pristine controls whether error and success states show before the user
// touched a control.
type Pristine struct {
	Errors  bool `yaml:"errors" json:"errors"`
	Success bool `yaml:"success" json:"success"`
}

// Options are the global form options.
type Options struct {
	AddSubmit          Mode              `yaml:"addSubmit" json:"addSubmit,omitempty"`
	Debug              bool              `yaml:"debug" json:"debug,omitempty"`
	Framework          string            `yaml:"framework" json:"framework,omitempty"`
	Widgets            map[string]string `yaml:"widgets" json:"widgets,omitempty"`
	LoadExternalAssets bool              `yaml:"loadExternalAssets" json:"loadExternalAssets,omitempty"`
	Pristine           Pristine          `yaml:"pristine" json:"pristine"`
	SetSchemaDefaults  Mode              `yaml:"setSchemaDefaults" json:"setSchemaDefaults,omitempty"`
	ValidateOnRender   bool              `yaml:"validateOnRender" json:"validateOnRender,omitempty"`
	ReturnEmptyFields  bool              `yaml:"returnEmptyFields" json:"returnEmptyFields,omitempty"`
	FixErrors          bool              `yaml:"fixErrors" json:"fixErrors,omitempty"`
	FormDefaults       FormDefaults      `yaml:"formDefaults" json:"formDefaults"`

	// Deprecated: use FormDefaults.EnableErrorState.
	DisableErrorState *bool `yaml:"disableErrorState" json:"-"`
	// Deprecated: use FormDefaults.EnableSuccessState.
	DisableSuccessState *bool `yaml:"disableSuccessState" json:"-"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		AddSubmit:         ModeAuto,
		SetSchemaDefaults: ModeAuto,
		Pristine:          Pristine{Errors: true, Success: true},
	}
}

// LoadOptions decodes options from a JSON or YAML document over the
// defaults.
func LoadOptions(raw []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("form: decode options: %w", err)
	}
	opts.translate()
	return opts, nil
}

// OptionsFromMap decodes options already parsed into a map, such as the
// options entry of a combined input document.
func OptionsFromMap(m map[string]any) (Options, error) {
	if len(m) == 0 {
		return DefaultOptions(), nil
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return Options{}, fmt.Errorf("form: encode options: %w", err)
	}
	return LoadOptions(raw)
}

// translate maps the deprecated disable flags onto their enable
// counterparts. An explicit enable flag wins.
func (o *Options) translate() {
	if o.DisableErrorState != nil && o.FormDefaults.EnableErrorState == nil {
		v := !*o.DisableErrorState
		o.FormDefaults.EnableErrorState = &v
	}
	if o.DisableSuccessState != nil && o.FormDefaults.EnableSuccessState == nil {
		v := !*o.DisableSuccessState
		o.FormDefaults.EnableSuccessState = &v
	}
	o.DisableErrorState, o.DisableSuccessState = nil, nil
	if o.AddSubmit == "" {
		o.AddSubmit = ModeAuto
	}
	if o.SetSchemaDefaults == "" {
		o.SetSchemaDefaults = ModeAuto
	}
}

func (o Options) submitMode() string {
	switch o.AddSubmit {
	case ModeTrue:
		return layout.SubmitAlways
	case ModeFalse:
		return layout.SubmitNever
	}
	return layout.SubmitAuto
}

func (o Options) defaultsMode() control.SchemaDefaults {
	switch o.SetSchemaDefaults {
	case ModeTrue:
		return control.DefaultsAlways
	case ModeFalse:
		return control.DefaultsNever
	}
	return control.DefaultsAuto
}

// Option configures New.
type Option func(*config)

type config struct {
	options   Options
	logger    *slog.Logger
	registry  *widgets.Registry
	validator validation.Validator
	evaluator visibility.Evaluator
	loader    jsonschema.Loader
	normalize jsonschema.NormalizeOptions
	document  jsonschema.Document
	overlay   *jsonschema.Overlay
	id        string
	// explicit is set by WithOptions; it overrides options carried by the
	// inputs.
	explicit bool
}

// WithOptions sets the global form options.
func WithOptions(opts Options) Option {
	return func(c *config) {
		opts.translate()
		c.options = opts
		c.explicit = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry sets the widget registry.
func WithRegistry(r *widgets.Registry) Option {
	return func(c *config) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithValidator replaces the default schema validator.
func WithValidator(v validation.Validator) Option {
	return func(c *config) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithEvaluator replaces the condition evaluator used by IsVisible.
func WithEvaluator(e visibility.Evaluator) Option {
	return func(c *config) {
		if e != nil {
			c.evaluator = e
		}
	}
}

// WithLoader enables external $ref loading through loader.
func WithLoader(loader jsonschema.Loader, opts jsonschema.NormalizeOptions) Option {
	return func(c *config) {
		c.loader = loader
		c.normalize = opts
	}
}

// WithOverlay attaches form hints to schema nodes before the form is built.
func WithOverlay(o jsonschema.Overlay) Option {
	return func(c *config) {
		c.overlay = &o
	}
}

// WithDocument names the document the schema was read from, so relative
// external references resolve against its location.
func WithDocument(doc jsonschema.Document) Option {
	return func(c *config) {
		c.document = doc
	}
}

// WithID sets the form ID instead of generating one.
func WithID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.id = id
		}
	}
}

func newConfig(opts []Option) config {
	c := config{options: DefaultOptions()}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.registry == nil {
		c.registry = widgets.NewRegistry(widgets.WithLogger(c.logger))
	}
	if c.validator == nil {
		c.validator = validation.New(validation.WithLogger(c.logger))
	}
	if c.evaluator == nil {
		c.evaluator = expr.New()
	}
	if c.overlay != nil {
		c.normalize.Overlay = c.overlay
	}
	if c.normalize.Logger == nil {
		c.normalize.Logger = c.logger
	}
	return c
}
