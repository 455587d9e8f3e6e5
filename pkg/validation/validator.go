package validation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	gojson "github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

// Error is one validation failure, located in the data and in the schema.
type Error struct {
	DataPath   string `json:"dataPath"`
	SchemaPath string `json:"schemaPath"`
	Keyword    string `json:"keyword"`
	Message    string `json:"message"`
}

// Validator compiles schemas into reusable validators.
type Validator interface {
	Compile(schema map[string]any) (Compiled, error)
}

// Compiled validates data against one schema.
type Compiled interface {
	Validate(data any) []Error
}

// DefaultCacheSize bounds the number of compiled schemas kept in memory.
const DefaultCacheSize = 64

const resourceURL = "https://jsonform.invalid/schema.json"

// Option configures the default validator.
type Option func(*options)

type options struct {
	draft     *jsonschema.Draft
	cacheSize int
	logger    *slog.Logger
}

// WithDraft sets the draft used when a schema does not declare $schema.
func WithDraft(d *jsonschema.Draft) Option {
	return func(o *options) {
		if d != nil {
			o.draft = d
		}
	}
}

// WithCacheSize sets the compiled schema cache size.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// SchemaValidator is the default Validator. Draft 4 applies unless the
// schema declares another dialect. Compiled schemas are cached by content.
type SchemaValidator struct {
	draft  *jsonschema.Draft
	cache  *lru.Cache[string, Compiled]
	logger *slog.Logger
}

// New returns the default validator.
func New(opts ...Option) *SchemaValidator {
	o := options{draft: jsonschema.Draft4, cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cache, err := lru.New[string, Compiled](o.cacheSize)
	if err != nil {
		o.logger.Warn("validation: compiled schema cache disabled", "error", err)
	}
	return &SchemaValidator{draft: o.draft, cache: cache, logger: o.logger}
}

// Compile compiles schema, reusing an earlier result for identical content.
func (v *SchemaValidator) Compile(schema map[string]any) (Compiled, error) {
	if schema == nil {
		return nil, errors.New("validation: compile: schema is nil")
	}
	raw, err := gojson.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("validation: compile: encode schema: %w", err)
	}
	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:])
	if v.cache != nil {
		if c, ok := v.cache.Get(key); ok {
			return c, nil
		}
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = v.draft
	compiler.AssertFormat = true
	if err := compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("validation: compile: %w", err)
	}
	sch, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("validation: compile: %w", err)
	}
	c := &compiled{schema: sch, logger: v.logger}
	if v.cache != nil {
		v.cache.Add(key, c)
	}
	return c, nil
}

type compiled struct {
	schema *jsonschema.Schema
	logger *slog.Logger
}

// Validate returns the leaf failures. Required failures are reported once per
// missing property, located at the property.
func (c *compiled) Validate(data any) []Error {
	instance, err := normalizeInstance(data)
	if err != nil {
		return []Error{{Keyword: "type", Message: err.Error()}}
	}
	err = c.schema.Validate(instance)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		c.logger.Warn("validation: unexpected validator error", "error", err)
		return []Error{{Message: err.Error()}}
	}
	var out []Error
	flatten(verr, &out)
	return out
}

// normalizeInstance round trips data through JSON so every number is a
// float64 and every container a plain map or slice.
func normalizeInstance(data any) (any, error) {
	raw, err := gojson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("validation: encode data: %w", err)
	}
	var out any
	if err := gojson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("validation: decode data: %w", err)
	}
	return out, nil
}

var quotedName = regexp.MustCompile(`['"]([^'"]+)['"]`)

func flatten(verr *jsonschema.ValidationError, out *[]Error) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			flatten(cause, out)
		}
		return
	}
	keyword := lastSegment(verr.KeywordLocation)
	if keyword == "required" {
		names := quotedName.FindAllStringSubmatch(verr.Message, -1)
		if len(names) > 0 {
			base, err := pointer.Parse(verr.InstanceLocation)
			if err == nil {
				for _, m := range names {
					*out = append(*out, Error{
						DataPath:   base.Append(m[1]).String(),
						SchemaPath: verr.KeywordLocation,
						Keyword:    keyword,
						Message:    "is required",
					})
				}
				return
			}
		}
	}
	*out = append(*out, Error{
		DataPath:   verr.InstanceLocation,
		SchemaPath: verr.KeywordLocation,
		Keyword:    keyword,
		Message:    verr.Message,
	})
}

func lastSegment(location string) string {
	location = strings.TrimSuffix(location, "/")
	if idx := strings.LastIndex(location, "/"); idx >= 0 {
		return pointer.Unescape(location[idx+1:])
	}
	return location
}
