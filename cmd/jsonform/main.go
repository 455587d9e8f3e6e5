package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"
	gojson "github.com/goccy/go-json"

	"github.com/goliatone/go-jsonform"
	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	pkgopenapi "github.com/goliatone/go-jsonform/pkg/openapi"
	"github.com/goliatone/go-jsonform/pkg/renderers/tui"
	"github.com/goliatone/go-jsonform/pkg/validation"
)

const usage = `usage: jsonform <command> [flags]

commands:
  build       print the layout and data map of a form
  validate    print the formatted data, validity and errors
  fill        fill a form from the terminal
  check       check a schema compiles against its meta-schema
  operations  list the operations of an OpenAPI document
`

type flags struct {
	source    string
	data      string
	operation string
	method    string
	path      string
	output    string
	overlay   string
	format    string
	debug     bool
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var f flags
	fs.StringVar(&f.source, "source", "", "schema, inputs or OpenAPI document path or URL")
	fs.StringVar(&f.data, "data", "", "JSON file with initial data")
	fs.StringVar(&f.operation, "operation", "", "OpenAPI operation ID")
	fs.StringVar(&f.method, "method", "", "OpenAPI operation method, with -path")
	fs.StringVar(&f.path, "path", "", "OpenAPI operation path, with -method")
	fs.StringVar(&f.overlay, "overlay", "", "UI overlay document adding form hints to the schema")
	fs.StringVar(&f.output, "output", "", "output file (stdout if empty)")
	fs.StringVar(&f.format, "format", string(tui.OutputFormatJSON), "fill output format: json, form or pretty")
	fs.BoolVar(&f.debug, "debug", false, "log form events to stderr")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	var (
		out  []byte
		code int
		err  error
	)
	switch cmd {
	case "build":
		out, err = build(ctx, f)
	case "validate":
		out, code, err = validate(ctx, f)
	case "fill":
		out, err = fill(ctx, f)
	case "operations":
		out, err = operations(ctx, f)
	case "check":
		out, code, err = check(ctx, f)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
	if err := write(f.output, out); err != nil {
		log.Fatalf("write output: %v", err)
	}
	os.Exit(code)
}

func build(ctx context.Context, f flags) ([]byte, error) {
	frm, err := load(ctx, f)
	if err != nil {
		return nil, err
	}
	return gojson.MarshalIndent(map[string]any{
		"layout":  frm.Layout(),
		"dataMap": frm.Compiled().DataMap,
	}, "", "  ")
}

// validate exits with status 1 when the data is invalid.
func validate(ctx context.Context, f flags) ([]byte, int, error) {
	frm, err := load(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	snap, err := frm.Submit()
	if err != nil {
		return nil, 0, err
	}
	out, err := gojson.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, 0, err
	}
	if !snap.Valid {
		return out, 1, nil
	}
	return out, 0, nil
}

func fill(ctx context.Context, f flags) ([]byte, error) {
	frm, err := load(ctx, f)
	if err != nil {
		return nil, err
	}
	filler := tui.New(
		tui.WithPromptDriver(tui.NewSurveyDriver(terminal.Stdio{Out: os.Stderr})),
		tui.WithOutputFormat(tui.OutputFormat(f.format)),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
		tui.WithLogger(logger(f.debug)),
	)
	return filler.Render(ctx, frm)
}

func operations(ctx context.Context, f flags) ([]byte, error) {
	src, err := jsonschema.ParseSource(f.source)
	if err != nil {
		return nil, err
	}
	adapter := jsonform.NewOpenAPIAdapter(newLoader())
	ops, err := adapter.Operations(ctx, src)
	if err != nil {
		return nil, err
	}
	return formatOperations(ops), nil
}

func formatOperations(ops []pkgopenapi.Operation) []byte {
	var b strings.Builder
	for _, op := range ops {
		fmt.Fprintf(&b, "%-7s %s", op.Method, op.Path)
		if op.ID != "" {
			fmt.Fprintf(&b, "  %s", op.ID)
		}
		if op.MediaType != "" {
			fmt.Fprintf(&b, "  [%s]", op.MediaType)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// check exits with status 1 when the schema has issues.
func check(ctx context.Context, f flags) ([]byte, int, error) {
	src, err := jsonschema.ParseSource(f.source)
	if err != nil {
		return nil, 0, err
	}
	loader := newLoader()
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return nil, 0, err
	}
	raw := doc.Raw()
	if pkgopenapi.Detect(raw) {
		schema, err := pkgopenapi.SchemaFromOperation(ctx, raw, selector(f))
		if err != nil {
			return nil, 0, err
		}
		if raw, err = gojson.Marshal(schema); err != nil {
			return nil, 0, err
		}
		src = jsonschema.SourceInline(selector(f).String())
	}
	opts := validation.SchemaCheckOptions{Loader: loader}
	if f.overlay != "" {
		overlay, err := readOverlay(f.overlay)
		if err != nil {
			return nil, 0, err
		}
		opts.Normalize.Overlay = &overlay
	}
	result := validation.ValidateSchema(ctx, src, raw, opts)
	out, err := gojson.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, 0, err
	}
	if !result.Valid {
		return out, 1, nil
	}
	return out, 0, nil
}

func load(ctx context.Context, f flags) (*jsonform.Form, error) {
	src, err := jsonschema.ParseSource(f.source)
	if err != nil {
		return nil, err
	}
	var data any
	if f.data != "" {
		raw, err := os.ReadFile(f.data)
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		if data, err = jsonschema.DecodeData(raw); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	opts := []form.Option{form.WithLogger(logger(f.debug))}
	if f.overlay != "" {
		overlay, err := readOverlay(f.overlay)
		if err != nil {
			return nil, err
		}
		opts = append(opts, form.WithOverlay(overlay))
	}
	return jsonform.FromSource(ctx, newLoader(), src, selector(f), data, opts...)
}

func selector(f flags) pkgopenapi.Selector {
	return pkgopenapi.Selector{OperationID: f.operation, Method: f.method, Path: f.path}
}

func readOverlay(path string) (jsonschema.Overlay, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return jsonschema.Overlay{}, fmt.Errorf("read overlay: %w", err)
	}
	return jsonschema.ParseOverlay(raw)
}

func newLoader() jsonschema.Loader {
	return jsonform.NewLoader(jsonschema.LoaderOptions{AllowHTTPFallback: true})
}

func logger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func write(path string, out []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(terminate(out))
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}
	_, err := io.WriteString(os.Stderr, "written to "+path+"\n")
	return err
}

func terminate(out []byte) []byte {
	if len(out) == 0 || out[len(out)-1] == '\n' {
		return out
	}
	return append(out, '\n')
}
