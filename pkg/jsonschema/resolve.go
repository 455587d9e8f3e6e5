package jsonschema

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/goliatone/go-jsonform/pkg/pointer"
	"github.com/goliatone/go-jsonform/pkg/schema"
)

// ResolveOptions configures ResolveReferences.
type ResolveOptions struct {
	// Logger receives diagnostics such as unresolvable references.
	Logger *slog.Logger
}

// Resolved is the output of ResolveReferences.
type Resolved struct {
	// Schema is the compiled schema: non-recursive refs inlined and
	// definitions removed. Recursive refs point at an ancestor.
	Schema map[string]any
	// RefLibrary maps every ref target pointer to its sub-schema.
	RefLibrary map[string]any
	// SchemaRecursiveRefMap maps each remaining $ref site to the ancestor
	// schema pointer it recurses into.
	SchemaRecursiveRefMap *schema.RecursiveRefMap
	// DataRecursiveRefMap is SchemaRecursiveRefMap in data pointer space.
	DataRecursiveRefMap *schema.RecursiveRefMap
	// ArrayMap records the tuple count of every array's generic data pointer.
	ArrayMap pointer.ArrayMap
	// HasRootReference is set when some node recurses into the root.
	HasRootReference bool
}

// ResolveReferences compiles the local $refs of root. Every reference that
// does not close a cycle is inlined with its sibling keywords winning.
// References that close a cycle are kept and rewritten to point at the
// nearest enclosing copy of their target, so the compiled schema is finite.
// allOf lists are merged where possible. An unresolvable $ref is removed,
// keeping its siblings, and logged. root is not modified.
func ResolveReferences(root map[string]any, opts ResolveOptions) (*Resolved, error) {
	if root == nil {
		return nil, errors.New("jsonschema: resolve: schema is nil")
	}
	r := &resolver{
		root:      root,
		logger:    loggerOrDiscard(opts.Logger),
		library:   map[string]any{},
		recursive: schema.NewRecursiveRefMap(),
	}
	r.collect()
	r.detectCycles()

	base := make(map[string]any, len(root))
	for k, v := range root {
		if k != "definitions" {
			base[k] = v
		}
	}
	compiled, _ := r.expand(base, pointer.Root(), []pointer.Pointer{pointer.Root()}).(map[string]any)
	if compiled == nil {
		compiled = map[string]any{}
	}
	return r.finish(compiled), nil
}

const maxRedirectRounds = 64

type refLink struct {
	from, to pointer.Pointer
}

type resolver struct {
	root    map[string]any
	logger  *slog.Logger
	links   []refLink
	missing map[string]bool
	library map[string]any
	// recursive holds cycles in original schema pointer space.
	recursive *schema.RecursiveRefMap
}

func (r *resolver) collect() {
	r.missing = map[string]bool{}
	pointer.ForEachDeep(r.root, func(v any, p pointer.Pointer, _ any) {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		raw, ok := m["$ref"].(string)
		if !ok {
			return
		}
		target, ok := r.parseRef(raw)
		if !ok {
			return
		}
		r.links = append(r.links, refLink{from: p, to: target})
		if _, ok := r.library[target.String()]; !ok {
			node, _ := pointer.Get(r.root, target)
			r.library[target.String()] = node
		}
	}, false)
}

// parseRef validates a local ref and reports unresolvable ones once.
func (r *resolver) parseRef(raw string) (pointer.Pointer, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "#") {
		if !r.missing[raw] {
			r.missing[raw] = true
			r.logger.Warn("jsonschema: unresolvable reference", "ref", raw, "reason", "not a local reference")
		}
		return nil, false
	}
	target, err := pointer.Parse(raw)
	if err != nil || !pointer.Has(r.root, target) {
		if !r.missing[raw] {
			r.missing[raw] = true
			r.logger.Warn("jsonschema: unresolvable reference", "ref", raw)
		}
		return nil, false
	}
	return target, true
}

// detectCycles records every reference that, directly or through a chain of
// references, leads back to one of its own ancestors.
func (r *resolver) detectCycles() {
	type key struct{ from, to string }
	seen := map[key]bool{}
	all := append([]refLink(nil), r.links...)
	for _, l := range all {
		seen[key{l.from.String(), l.to.String()}] = true
	}
	for _, a := range r.links {
		for _, b := range r.links {
			if !pointer.IsSubPointer(a.to, b.from, true) || pointer.IsSubPointer(b.to, a.to, true) {
				continue
			}
			from := a.from.Concat(b.from[len(a.to):])
			k := key{from.String(), b.to.String()}
			if seen[k] {
				continue
			}
			seen[k] = true
			all = append(all, refLink{from: from, to: b.to})
		}
	}
	for _, l := range all {
		if pointer.IsSubPointer(l.to, l.from, false) {
			r.recursive.SetIfAbsent(l.from, l.to)
		}
	}
	// Redirect cycles reached through other references onto the referring
	// site until no new entry appears.
	for round, changed := 0, true; changed && round < maxRedirectRounds; round++ {
		changed = false
		for _, a := range r.links {
			inside := false
			for _, e := range r.recursive.Entries() {
				if pointer.IsSubPointer(a.from, e.From, true) {
					inside = true
					break
				}
			}
			if inside {
				continue
			}
			for _, e := range r.recursive.Entries() {
				if !pointer.IsSubPointer(a.to, e.From, true) || pointer.IsSubPointer(a.to, a.from, true) {
					continue
				}
				from := a.from.Concat(e.From[len(a.to):])
				if r.recursive.Has(from) {
					continue
				}
				to := a.from
				if pointer.IsSubPointer(a.to, e.To, true) {
					to = a.from.Concat(e.To[len(a.to):])
				}
				r.recursive.Set(from, to)
				changed = true
			}
		}
	}
}

// expand inlines refs below node, which lives at at in the original schema.
// used lists the ref targets currently being inlined.
func (r *resolver) expand(node any, at pointer.Pointer, used []pointer.Pointer) any {
	return pointer.MapDeep(node, at, func(v any, p pointer.Pointer) any {
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		if raw, ok := m["$ref"].(string); ok {
			target, ok := r.parseRef(raw)
			switch {
			case !ok:
				m = without(m, "$ref")
			case r.closesCycle(target, p, used):
				// kept, finish points it at the enclosing copy
			default:
				inlined := r.subSchema(target, used)
				rest := without(m, "$ref")
				if len(rest) == 0 {
					m = inlined
				} else {
					m = MergeSchemas(inlined, rest)
				}
			}
		}
		if _, ok := m["allOf"]; ok {
			m = CombineAllOf(m)
		}
		return FixRequiredArrayProperties(m)
	}, true)
}

func (r *resolver) closesCycle(target, at pointer.Pointer, used []pointer.Pointer) bool {
	if pointer.IsSubPointer(target, at, true) {
		return true
	}
	for _, u := range used {
		if pointer.IsSubPointer(target, u, true) {
			return true
		}
	}
	return false
}

func (r *resolver) subSchema(target pointer.Pointer, used []pointer.Pointer) map[string]any {
	next := append(append([]pointer.Pointer(nil), used...), target)
	node, ok := r.library[target.String()].(map[string]any)
	if !ok {
		v, _ := pointer.Get(r.root, target)
		node, _ = v.(map[string]any)
	}
	if node == nil {
		return map[string]any{}
	}
	out, _ := r.expand(node, target, next).(map[string]any)
	return out
}

// finish rewrites the kept refs of compiled to point at ancestors and fills
// the recursive maps, the library and the array map.
func (r *resolver) finish(compiled map[string]any) *Resolved {
	res := &Resolved{
		RefLibrary:            map[string]any{},
		SchemaRecursiveRefMap: schema.NewRecursiveRefMap(),
		DataRecursiveRefMap:   schema.NewRecursiveRefMap(),
		ArrayMap:              pointer.ArrayMap{},
	}
	for k, v := range r.library {
		res.RefLibrary[k] = v
	}

	type site struct {
		at     pointer.Pointer
		target pointer.Pointer
	}
	var sites []site
	pointer.ForEachDeep(compiled, func(v any, p pointer.Pointer, _ any) {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		if raw, ok := m["$ref"].(string); ok {
			if target, err := pointer.Parse(raw); err == nil {
				sites = append(sites, site{at: p, target: target})
			}
		}
	}, false)

	var out any = compiled
	for _, s := range sites {
		target := s.target
		if !pointer.IsSubPointer(target, s.at, true) {
			short := schema.RemoveRecursiveReferences(s.at, r.recursive, nil)
			if !pointer.IsSubPointer(short, s.at, false) {
				r.logger.Warn("jsonschema: dropping recursive reference without enclosing target",
					"at", s.at.String(), "ref", "#"+target.String())
				node, _ := pointer.Get(out, s.at)
				out, _ = pointer.Set(out, s.at, without(node.(map[string]any), "$ref"))
				continue
			}
			target = short
			node, _ := pointer.Get(out, s.at)
			rewritten := without(node.(map[string]any), "$ref")
			rewritten["$ref"] = "#" + target.String()
			out, _ = pointer.Set(out, s.at, rewritten)
		}
		res.SchemaRecursiveRefMap.SetIfAbsent(s.at, target)
		if len(target) == 0 {
			res.HasRootReference = true
		}
	}
	res.Schema = out.(map[string]any)

	for _, e := range res.SchemaRecursiveRefMap.Entries() {
		if !pointer.IsSubPointer(e.To, e.From, true) {
			res.SchemaRecursiveRefMap.Delete(e.From)
			continue
		}
		fromData, okFrom := ToDataPointer(e.From, res.Schema)
		toData, okTo := ToDataPointer(e.To, res.Schema)
		if !okFrom || !okTo {
			continue
		}
		res.DataRecursiveRefMap.SetIfAbsent(fromData, toData)
		node, _ := pointer.Get(res.Schema, e.To)
		res.RefLibrary[e.To.String()] = node
	}

	pointer.ForEachDeep(res.Schema, func(v any, p pointer.Pointer, _ any) {
		m, ok := v.(map[string]any)
		if !ok || PrimaryType(m) != "array" {
			return
		}
		data, ok := ToDataPointer(p, res.Schema)
		if !ok {
			return
		}
		tuple := 0
		if items, ok := m["items"].([]any); ok {
			tuple = len(items)
		}
		res.ArrayMap.SetIfAbsent(data, tuple)
	}, false)
	return res
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
