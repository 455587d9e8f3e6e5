package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-jsonform/pkg/pointer"
)

const (
	defaultMaxDocumentBytes = int64(5 << 20)
	defaultMaxDocuments     = 128
)

// BundleOptions configures how external references are pulled into a schema.
type BundleOptions struct {
	// AllowHTTPRefs toggles HTTP/HTTPS ref loading.
	AllowHTTPRefs bool
	// AllowPathTraversal permits refs to escape the root directory.
	AllowPathTraversal bool
	// MaxDocumentBytes caps the size of any single referenced document.
	MaxDocumentBytes int64
	// MaxDocuments caps the number of documents loaded while bundling.
	MaxDocuments int
	Logger       *slog.Logger
}

// Bundle returns a copy of root where every reference is local. $defs is
// folded into definitions, anchor refs become pointer refs and each external
// document is copied under definitions with its refs rewritten. doc
// identifies where root came from so relative refs can be located. A nil
// loader leaves external refs in place for the resolver to report.
func Bundle(ctx context.Context, loader Loader, doc Document, root map[string]any, opts BundleOptions) (map[string]any, error) {
	if root == nil {
		return nil, errors.New("jsonschema: bundle: schema is nil")
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = defaultMaxDocuments
	}
	b := &bundler{
		loader:   loader,
		opts:     opts,
		logger:   loggerOrDiscard(opts.Logger),
		docs:     map[string]*bundledDocument{},
		imported: map[string]any{},
	}
	out := foldDefs(cloneAny(root).(map[string]any))

	rootDoc := &bundledDocument{prefix: pointer.Root(), data: out, anchors: map[string]string{}}
	if src := doc.Source(); src != nil && src.Kind() != SourceKindInline {
		key, location, baseDir, err := b.canonicalLocation(src)
		if err != nil {
			return nil, err
		}
		rootDoc.key, rootDoc.kind, rootDoc.location, rootDoc.baseDir = key, src.Kind(), location, baseDir
		b.rootBaseDir = baseDir
		b.docs[key] = rootDoc
	}
	if err := indexAnchors(out, "", rootDoc.anchors); err != nil {
		return nil, err
	}
	rewritten, err := b.rewrite(ctx, rootDoc, out)
	if err != nil {
		return nil, err
	}
	result := rewritten.(map[string]any)
	if len(b.imported) > 0 {
		defs, _ := result["definitions"].(map[string]any)
		if defs == nil {
			defs = map[string]any{}
		}
		for name, schema := range b.imported {
			defs[name] = schema
		}
		result["definitions"] = defs
	}
	return result, nil
}

type bundler struct {
	loader      Loader
	opts        BundleOptions
	logger      *slog.Logger
	rootBaseDir string
	docs        map[string]*bundledDocument
	imported    map[string]any
}

type bundledDocument struct {
	key      string
	kind     SourceKind
	location string
	baseDir  string
	// prefix is where the document lives inside the bundled schema.
	prefix  pointer.Pointer
	data    map[string]any
	anchors map[string]string
}

// foldDefs moves $defs entries into definitions and repoints refs to them.
func foldDefs(node map[string]any) map[string]any {
	defs, ok := node["$defs"].(map[string]any)
	if !ok {
		return node
	}
	merged, _ := node["definitions"].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range defs {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	node["definitions"] = merged
	delete(node, "$defs")
	return pointer.MapDeep(node, pointer.Root(), func(v any, _ pointer.Pointer) any {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		if ref, ok := m["$ref"].(string); ok && strings.HasPrefix(ref, "#/$defs/") {
			m["$ref"] = "#/definitions/" + strings.TrimPrefix(ref, "#/$defs/")
		}
		return m
	}, true).(map[string]any)
}

func (b *bundler) rewrite(ctx context.Context, doc *bundledDocument, node any) (any, error) {
	switch typed := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			if key == "enum" || key == "const" || key == "default" || key == "examples" {
				out[key] = value
				continue
			}
			child, err := b.rewrite(ctx, doc, value)
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		if ref, ok := typed["$ref"].(string); ok {
			local, err := b.localRef(ctx, doc, strings.TrimSpace(ref))
			if err != nil {
				return nil, err
			}
			out["$ref"] = local
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			child, err := b.rewrite(ctx, doc, value)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	}
	return node, nil
}

// localRef maps ref, written inside doc, to a ref into the bundled schema.
func (b *bundler) localRef(ctx context.Context, doc *bundledDocument, ref string) (string, error) {
	refPath, fragment := splitRef(ref)
	target := doc
	if refPath != "" {
		loaded, ok, err := b.external(ctx, doc, refPath)
		if err != nil {
			return "", err
		}
		if !ok {
			return ref, nil
		}
		target = loaded
	}
	ptr, err := b.fragmentPointer(target, fragment)
	if err != nil {
		b.logger.Warn("jsonschema: unresolvable reference", "ref", ref, "error", err)
		return ref, nil
	}
	return "#" + target.prefix.Concat(ptr).String(), nil
}

func (b *bundler) fragmentPointer(doc *bundledDocument, fragment string) (pointer.Pointer, error) {
	if fragment == "" {
		return pointer.Root(), nil
	}
	if strings.HasPrefix(fragment, "/") {
		p, err := pointer.Parse("#" + fragment)
		if err == nil && len(p) > 0 && p[0].Key() == "$defs" {
			p = pointer.New("definitions").Concat(p[1:])
		}
		return p, err
	}
	anchored, ok := doc.anchors[fragment]
	if !ok {
		return nil, fmt.Errorf("anchor %q not found", fragment)
	}
	return pointer.Parse(anchored)
}

// external loads the document at refPath and imports it under definitions.
// It reports false when external loading is unavailable.
func (b *bundler) external(ctx context.Context, from *bundledDocument, refPath string) (*bundledDocument, bool, error) {
	if b.loader == nil {
		b.logger.Warn("jsonschema: external reference without loader", "ref", refPath)
		return nil, false, nil
	}
	src, err := b.sourceFor(from, refPath)
	if err != nil {
		return nil, false, err
	}
	key, location, baseDir, err := b.canonicalLocation(src)
	if err != nil {
		return nil, false, err
	}
	if cached, ok := b.docs[key]; ok {
		return cached, true, nil
	}
	if len(b.docs) >= b.opts.MaxDocuments {
		return nil, false, fmt.Errorf("jsonschema: bundle: exceeded max documents (%d)", b.opts.MaxDocuments)
	}
	loaded, err := b.loader.Load(ctx, src)
	if err != nil {
		return nil, false, fmt.Errorf("jsonschema: bundle: load %s: %w", location, err)
	}
	if int64(len(loaded.Raw())) > b.opts.MaxDocumentBytes {
		return nil, false, fmt.Errorf("jsonschema: bundle: document too large (%d bytes)", len(loaded.Raw()))
	}
	payload, err := DecodeDocument(loaded)
	if err != nil {
		return nil, false, err
	}
	payload = foldDefs(ConvertLegacyDialect(payload))

	name := b.definitionName(location)
	doc := &bundledDocument{
		key:      key,
		kind:     src.Kind(),
		location: location,
		baseDir:  baseDir,
		prefix:   pointer.New("definitions", name),
		data:     payload,
		anchors:  map[string]string{},
	}
	if err := indexAnchors(payload, "", doc.anchors); err != nil {
		return nil, false, err
	}
	b.docs[key] = doc
	b.imported[name] = nil
	rewritten, err := b.rewrite(ctx, doc, payload)
	if err != nil {
		return nil, false, err
	}
	b.imported[name] = rewritten
	b.logger.Debug("jsonschema: bundled external document", "location", location, "definition", name)
	return doc, true, nil
}

func (b *bundler) definitionName(location string) string {
	base := path.Base(filepath.ToSlash(location))
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		base = path.Base(u.Path)
	}
	if base == "" || base == "." || base == "/" {
		base = "external"
	}
	name := base
	for i := 2; ; i++ {
		if _, taken := b.imported[name]; !taken {
			return name
		}
		name = base + "-" + strconv.Itoa(i)
	}
}

func (b *bundler) sourceFor(doc *bundledDocument, refPath string) (Source, error) {
	parsed, err := url.Parse(refPath)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: bundle: invalid ref %q", refPath)
	}
	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		if !b.opts.AllowHTTPRefs {
			return nil, fmt.Errorf("jsonschema: bundle: http refs disabled (%s)", refPath)
		}
		return SourceFromURL(parsed.String()), nil
	case parsed.Scheme == "file":
		return SourceFromFile(parsed.Path), nil
	case parsed.Scheme != "":
		return nil, fmt.Errorf("jsonschema: bundle: unsupported ref scheme %q", parsed.Scheme)
	}
	switch doc.kind {
	case SourceKindFile:
		resolved, err := b.cleanFilePath(doc.baseDir, parsed.Path)
		if err != nil {
			return nil, err
		}
		return SourceFromFile(resolved), nil
	case SourceKindFS:
		resolved, err := b.cleanFSPath(doc.baseDir, parsed.Path)
		if err != nil {
			return nil, err
		}
		return SourceFromFS(resolved), nil
	case SourceKindURL:
		if !b.opts.AllowHTTPRefs {
			return nil, fmt.Errorf("jsonschema: bundle: http refs disabled (%s)", refPath)
		}
		base, err := url.Parse(doc.location)
		if err != nil {
			return nil, err
		}
		return SourceFromURL(base.ResolveReference(parsed).String()), nil
	}
	return nil, fmt.Errorf("jsonschema: bundle: relative ref %q needs a file, fs or url document", refPath)
}

func (b *bundler) canonicalLocation(src Source) (string, string, string, error) {
	location := src.Location()
	switch src.Kind() {
	case SourceKindFile:
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", "", "", err
		}
		return "file:" + abs, abs, filepath.Dir(abs), nil
	case SourceKindFS:
		cleaned := path.Clean(strings.TrimPrefix(location, "/"))
		return "fs:" + cleaned, cleaned, path.Dir(cleaned), nil
	case SourceKindURL:
		return "url:" + location, location, path.Dir(location), nil
	}
	return "", "", "", fmt.Errorf("jsonschema: bundle: unsupported source kind %q", src.Kind())
}

func (b *bundler) cleanFilePath(baseDir, refPath string) (string, error) {
	candidate := refPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, refPath)
	}
	candidate = filepath.Clean(candidate)
	if b.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := baseDir
	if b.rootBaseDir != "" {
		root = b.rootBaseDir
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("jsonschema: bundle: ref path escapes root (%s)", refPath)
	}
	return candidate, nil
}

func (b *bundler) cleanFSPath(baseDir, refPath string) (string, error) {
	candidate := strings.TrimPrefix(path.Clean(path.Join(baseDir, refPath)), "/")
	if b.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := baseDir
	if b.rootBaseDir != "" {
		root = b.rootBaseDir
	}
	root = strings.TrimPrefix(path.Clean(root), "/")
	if root == "." || root == "" {
		if strings.HasPrefix(candidate, "..") {
			return "", fmt.Errorf("jsonschema: bundle: ref path escapes root (%s)", refPath)
		}
		return candidate, nil
	}
	if candidate == root || strings.HasPrefix(candidate, root+"/") {
		return candidate, nil
	}
	return "", fmt.Errorf("jsonschema: bundle: ref path escapes root (%s)", refPath)
}

func splitRef(ref string) (string, string) {
	refPath, fragment, _ := strings.Cut(ref, "#")
	return refPath, fragment
}

// indexAnchors records the pointer of every $anchor and fragment-only id.
func indexAnchors(node any, at string, anchors map[string]string) error {
	switch typed := node.(type) {
	case map[string]any:
		for _, key := range []string{"$anchor", "$id", "id"} {
			name, _ := typed[key].(string)
			name = strings.TrimSpace(name)
			if key != "$anchor" {
				if !strings.HasPrefix(name, "#") {
					continue
				}
				name = strings.TrimPrefix(name, "#")
			}
			if name == "" {
				continue
			}
			if prev, exists := anchors[name]; exists && prev != at {
				return fmt.Errorf("jsonschema: duplicate anchor %q", name)
			}
			anchors[name] = at
		}
		for key, value := range typed {
			if key == "enum" || key == "const" || key == "default" {
				continue
			}
			if err := indexAnchors(value, at+"/"+pointer.Escape(key), anchors); err != nil {
				return err
			}
		}
	case []any:
		for i, value := range typed {
			if err := indexAnchors(value, at+"/"+strconv.Itoa(i), anchors); err != nil {
				return err
			}
		}
	}
	return nil
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
