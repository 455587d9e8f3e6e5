package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-jsonform/pkg/jsonschema"
	"github.com/goliatone/go-jsonform/pkg/pointer"
)

const (
	componentsPrefix  = "#/components/schemas/"
	definitionsPrefix = "#/definitions/"
)

var (
	// ErrOperationNotFound reports a selector matching no operation.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody reports an operation without a request body schema.
	ErrNoRequestBody = errors.New("openapi: operation has no request body schema")
)

// preferred lists the media types tried first, in order.
var preferred = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// Selector picks an operation by operationId, or by method and path when
// OperationID is empty.
type Selector struct {
	OperationID string
	Method      string
	Path        string
}

func (s Selector) String() string {
	if s.OperationID != "" {
		return s.OperationID
	}
	return strings.ToUpper(s.Method) + " " + s.Path
}

// Operation summarizes one operation of a document.
type Operation struct {
	ID        string `json:"id,omitempty"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Summary   string `json:"summary,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// Detect reports whether raw looks like an OpenAPI or Swagger document.
func Detect(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '{' {
		doc, err := jsonschema.DecodeSchema(trimmed)
		if err != nil {
			return false
		}
		_, isOpenAPI := doc["openapi"]
		_, isSwagger := doc["swagger"]
		return isOpenAPI || isSwagger
	}
	lower := strings.ToLower(string(trimmed))
	return strings.Contains(lower, "openapi:") || strings.Contains(lower, "swagger:")
}

// Operations lists the operations of a document sorted by path and method.
func Operations(ctx context.Context, raw []byte) ([]Operation, error) {
	doc, err := load(ctx, raw)
	if err != nil {
		return nil, err
	}
	var out []Operation
	for _, path := range sortedPaths(doc) {
		item := doc.Paths.Value(path)
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			op := ops[method]
			mediaType, _ := mediaTypeOf(op)
			out = append(out, Operation{
				ID:        op.OperationID,
				Method:    method,
				Path:      path,
				Summary:   op.Summary,
				MediaType: mediaType,
			})
		}
	}
	return out, nil
}

// SchemaFromOperation returns the request body schema of the selected
// operation. References to "#/components/schemas/X" are rewritten to
// "#/definitions/X" and every component schema reachable from the body is
// copied under "definitions". OpenAPI 3.0 "nullable" flags become a "null"
// member of the type list.
func SchemaFromOperation(ctx context.Context, raw []byte, sel Selector) (map[string]any, error) {
	doc, err := load(ctx, raw)
	if err != nil {
		return nil, err
	}
	path, method, op, ok := find(doc, sel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, sel)
	}
	mediaType, ok := mediaTypeOf(op)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestBody, sel)
	}

	// The body is read from the ordered decoding so properties keep the
	// authored order.
	tree, err := decode(raw)
	if err != nil {
		return nil, err
	}
	body, ok := pointer.Get(tree, pointer.New("paths", path, strings.ToLower(method), "requestBody"))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestBody, sel)
	}
	body, err = follow(tree, body)
	if err != nil {
		return nil, err
	}
	node, ok := pointer.Get(body, pointer.New("content", mediaType, "schema"))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRequestBody, sel)
	}
	out, ok := rewrite(node).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("openapi: request body schema of %s is not an object", sel)
	}

	components, _ := pointer.Get(tree, pointer.New("components", "schemas"))
	if defs := reachable(out, components); len(defs) > 0 {
		out["definitions"] = defs
	}
	if out["title"] == nil && op.Summary != "" {
		out["title"] = op.Summary
	}
	return out, nil
}

func load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("openapi: document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	return doc, nil
}

func decode(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return jsonschema.DecodeSchema(trimmed)
	}
	return jsonschema.DecodeSchemaYAML(trimmed)
}

func sortedPaths(doc *openapi3.T) []string {
	paths := make([]string, 0, doc.Paths.Len())
	for path := range doc.Paths.Map() {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func find(doc *openapi3.T, sel Selector) (string, string, *openapi3.Operation, bool) {
	if sel.OperationID == "" {
		item := doc.Paths.Value(sel.Path)
		if item == nil {
			return "", "", nil, false
		}
		method := strings.ToUpper(sel.Method)
		op := item.GetOperation(method)
		return sel.Path, method, op, op != nil
	}
	for _, path := range sortedPaths(doc) {
		for method, op := range doc.Paths.Value(path).Operations() {
			if op.OperationID == sel.OperationID {
				return path, method, op, true
			}
		}
	}
	return "", "", nil, false
}

// mediaTypeOf picks the request body media type the form is built for.
func mediaTypeOf(op *openapi3.Operation) (string, bool) {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return "", false
	}
	content := op.RequestBody.Value.Content
	for _, name := range preferred {
		if mt, ok := content[name]; ok && mt.Schema != nil {
			return name, true
		}
	}
	names := make([]string, 0, len(content))
	for name, mt := range content {
		if mt != nil && mt.Schema != nil {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.HasSuffix(name, "+json") {
			return name, true
		}
	}
	return names[0], true
}

// follow resolves a local "$ref" chain such as a reference to
// "#/components/requestBodies/X".
func follow(tree map[string]any, node any) (any, error) {
	for i := 0; i < 16; i++ {
		obj, ok := node.(map[string]any)
		if !ok {
			return node, nil
		}
		ref, ok := obj["$ref"].(string)
		if !ok {
			return node, nil
		}
		p, err := pointer.Parse(ref)
		if err != nil || !strings.HasPrefix(ref, "#") {
			return nil, fmt.Errorf("openapi: unsupported reference %q", ref)
		}
		if node, ok = pointer.Get(tree, p); !ok {
			return nil, fmt.Errorf("openapi: unresolved reference %q", ref)
		}
	}
	return nil, errors.New("openapi: reference chain too deep")
}

func rewrite(node any) any {
	return pointer.MapDeep(node, pointer.Root(), func(value any, _ pointer.Pointer) any {
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		if ref, ok := obj["$ref"].(string); ok && strings.HasPrefix(ref, componentsPrefix) {
			obj["$ref"] = definitionsPrefix + strings.TrimPrefix(ref, componentsPrefix)
		}
		if nullable, _ := obj["nullable"].(bool); nullable {
			delete(obj, "nullable")
			if t, ok := obj["type"].(string); ok {
				obj["type"] = []any{t, "null"}
			}
		}
		return obj
	}, true)
}

// reachable copies the component schemas referenced from root, directly or
// through other components.
func reachable(root map[string]any, components any) map[string]any {
	all, ok := components.(map[string]any)
	if !ok {
		return nil
	}
	defs := map[string]any{}
	queue := refNames(root)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, done := defs[name]; done {
			continue
		}
		schema, ok := all[name]
		if !ok {
			continue
		}
		converted := rewrite(schema)
		defs[name] = converted
		queue = append(queue, refNames(converted)...)
	}
	return defs
}

func refNames(node any) []string {
	var names []string
	pointer.ForEachDeep(node, func(value any, _ pointer.Pointer, _ any) {
		obj, ok := value.(map[string]any)
		if !ok {
			return
		}
		ref, ok := obj["$ref"].(string)
		if !ok || !strings.HasPrefix(ref, definitionsPrefix) {
			return
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(ref, definitionsPrefix), "/")
		names = append(names, pointer.Unescape(name))
	}, false)
	return names
}
