package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-jsonform"
	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	pkgopenapi "github.com/goliatone/go-jsonform/pkg/openapi"
)

type violation struct {
	file     string
	location string
	message  string
}

func main() {
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [paths...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nBuild each form and report the layout entries, widgets and references it had to drop or replace.\n\n"); err != nil {
			panic(err)
		}
		flag.PrintDefaults()
	}
	operation := flag.String("operation", "", "OpenAPI operation ID; every operation with a body when empty")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	loader := jsonform.NewLoader(jsonschema.LoaderOptions{AllowHTTPFallback: true})

	var violations []violation
	for _, path := range paths {
		linted, err := lintFile(ctx, loader, path, *operation)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", path, err)
			os.Exit(1)
		}
		violations = append(violations, linted...)
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			if violations[i].file == violations[j].file {
				return violations[i].location < violations[j].location
			}
			return violations[i].file < violations[j].file
		})
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "%s: %s -> %s\n", v.file, v.location, v.message)
		}
		os.Exit(1)
	}
}

func lintFile(ctx context.Context, loader jsonschema.Loader, path, operation string) ([]violation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	src := jsonschema.SourceFromFile(path)

	selectors := []pkgopenapi.Selector{{}}
	if pkgopenapi.Detect(raw) {
		selectors, err = bodySelectors(ctx, raw, operation)
		if err != nil {
			return nil, err
		}
	}

	var result []violation
	for _, sel := range selectors {
		location := "form"
		if sel.OperationID != "" || sel.Path != "" {
			location = "operation " + sel.String()
		}
		collector := newCollector()
		frm, err := jsonform.FromSource(ctx, loader, src, sel, nil, form.WithLogger(slog.New(collector)))
		if err != nil {
			result = append(result, violation{file: path, location: location, message: err.Error()})
			continue
		}
		frm.Dispose()
		for _, msg := range collector.messages() {
			result = append(result, violation{file: path, location: location, message: msg})
		}
	}
	return result, nil
}

// bodySelectors lists the operations with a request body, or only the named
// one.
func bodySelectors(ctx context.Context, raw []byte, operation string) ([]pkgopenapi.Selector, error) {
	if operation != "" {
		return []pkgopenapi.Selector{{OperationID: operation}}, nil
	}
	ops, err := pkgopenapi.Operations(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("parse operations: %w", err)
	}
	var out []pkgopenapi.Selector
	for _, op := range ops {
		if op.MediaType == "" {
			continue
		}
		out = append(out, pkgopenapi.Selector{OperationID: op.ID, Method: op.Method, Path: op.Path})
	}
	return out, nil
}

// collector is a slog.Handler keeping warnings and errors as lint messages.
// Handlers derived through WithAttrs share the same lines.
type collector struct {
	attrs []slog.Attr
	sink  *sink
}

type sink struct {
	mu    sync.Mutex
	lines []string
}

func newCollector() *collector { return &collector{sink: &sink{}} }

func (c *collector) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (c *collector) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	}
	for _, a := range c.attrs {
		write(a)
	}
	r.Attrs(write)
	c.sink.mu.Lock()
	c.sink.lines = append(c.sink.lines, b.String())
	c.sink.mu.Unlock()
	return nil
}

func (c *collector) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &collector{attrs: append(append([]slog.Attr(nil), c.attrs...), attrs...), sink: c.sink}
}

func (c *collector) WithGroup(string) slog.Handler { return c }

func (c *collector) messages() []string {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return append([]string(nil), c.sink.lines...)
}
