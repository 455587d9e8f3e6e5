// Package pointer implements RFC 6901 JSON Pointers over decoded JSON trees
// (map[string]any / []any) together with the generic/indexed pointer
// conversions used to address repeatable array slots.
package pointer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Placeholder is the string form of the any-index segment.
const Placeholder = "-"

// ErrInvalidPointer marks malformed pointer input.
var ErrInvalidPointer = errors.New("pointer: invalid pointer")

// ErrNotObject is returned when a pointer descends into a scalar.
var ErrNotObject = errors.New("pointer: not an object or array")

// Error describes a pointer that could not be parsed.
type Error struct {
	Input  any
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pointer: invalid pointer %#v: %s", e.Input, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalidPointer }

var (
	escaper   = strings.NewReplacer("~", "~0", "/", "~1")
	unescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Escape encodes a single key for use inside a pointer string.
func Escape(key string) string { return escaper.Replace(key) }

// Unescape decodes a single escaped pointer segment.
func Unescape(segment string) string { return unescaper.Replace(segment) }

// Segment is one step of a Pointer. It is either a literal key or the typed
// any-index placeholder used by generic pointers.
type Segment struct {
	key      string
	wildcard bool
}

// Key returns a literal segment. Key("-") is a property named "-", never the
// placeholder.
func Key(k string) Segment { return Segment{key: k} }

// Index returns a literal array index segment.
func Index(i int) Segment { return Segment{key: strconv.Itoa(i)} }

// AnyIndex returns the placeholder segment standing for any list position.
func AnyIndex() Segment { return Segment{key: Placeholder, wildcard: true} }

// Key returns the segment's key. The placeholder reports "-".
func (s Segment) Key() string { return s.key }

// IsWildcard reports whether s is the any-index placeholder.
func (s Segment) IsWildcard() bool { return s.wildcard }

// Index returns the numeric value of a canonical array index segment.
func (s Segment) Index() (int, bool) {
	if s.wildcard || s.key == "" {
		return 0, false
	}
	if len(s.key) > 1 && s.key[0] == '0' {
		return 0, false
	}
	for _, r := range s.key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s.key)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s Segment) String() string {
	if s.wildcard {
		return Placeholder
	}
	return Escape(s.key)
}

// Pointer is an ordered sequence of segments. The zero value addresses the
// document root.
type Pointer []Segment

// Root returns the empty pointer.
func Root() Pointer { return Pointer{} }

// New builds a pointer from literal keys.
func New(keys ...string) Pointer {
	out := make(Pointer, len(keys))
	for i, k := range keys {
		out[i] = Key(k)
	}
	return out
}

// Parse decodes a pointer string. A leading "#" (URI fragment form) is
// accepted and percent-decoded. Bare "-" segments become placeholders.
func Parse(s string) (Pointer, error) {
	if strings.HasPrefix(s, "#") {
		decoded, err := url.PathUnescape(s[1:])
		if err != nil {
			return nil, &Error{Input: s, Reason: err.Error()}
		}
		s = decoded
	}
	if s == "" {
		return Pointer{}, nil
	}
	if s[0] != '/' {
		return nil, &Error{Input: s, Reason: "must start with '/'"}
	}
	parts := strings.Split(s[1:], "/")
	out := make(Pointer, len(parts))
	for i, part := range parts {
		if part == Placeholder {
			out[i] = AnyIndex()
			continue
		}
		out[i] = Key(Unescape(part))
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Pointer {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// From accepts a pointer string, a key list or a Pointer.
func From(v any) (Pointer, error) {
	switch typed := v.(type) {
	case Pointer:
		return typed.Clone(), nil
	case string:
		return Parse(typed)
	case []string:
		return New(typed...), nil
	case []any:
		out := make(Pointer, 0, len(typed))
		for _, item := range typed {
			switch k := item.(type) {
			case string:
				out = append(out, Key(k))
			case int:
				out = append(out, Index(k))
			case Segment:
				out = append(out, k)
			default:
				return nil, &Error{Input: v, Reason: fmt.Sprintf("unsupported key %T", item)}
			}
		}
		return out, nil
	default:
		return nil, &Error{Input: v, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// String compiles the pointer to its RFC 6901 form.
func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		b.WriteString(seg.String())
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Pointer) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pointer) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Clone returns a copy that does not share backing storage with p.
func (p Pointer) Clone() Pointer {
	out := make(Pointer, len(p))
	copy(out, p)
	return out
}

// IsRoot reports whether p addresses the document root.
func (p Pointer) IsRoot() bool { return len(p) == 0 }

// Last returns the final segment.
func (p Pointer) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// Parent drops the final segment.
func (p Pointer) Parent() Pointer {
	if len(p) == 0 {
		return Pointer{}
	}
	return p[:len(p)-1].Clone()
}

// Append returns a new pointer extended by literal keys.
func (p Pointer) Append(keys ...string) Pointer {
	out := make(Pointer, 0, len(p)+len(keys))
	out = append(out, p...)
	for _, k := range keys {
		out = append(out, Key(k))
	}
	return out
}

// AppendSegments returns a new pointer extended by segs.
func (p Pointer) AppendSegments(segs ...Segment) Pointer {
	out := make(Pointer, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// AppendIndex returns a new pointer extended by an array index.
func (p Pointer) AppendIndex(i int) Pointer { return p.AppendSegments(Index(i)) }

// AppendAny returns a new pointer extended by the placeholder.
func (p Pointer) AppendAny() Pointer { return p.AppendSegments(AnyIndex()) }

// Concat joins two pointers.
func (p Pointer) Concat(q Pointer) Pointer { return p.AppendSegments(q...) }

// Trim drops skipLeading segments from the front and skipTrailing from the
// back. Out of range values yield the root pointer.
func (p Pointer) Trim(skipLeading, skipTrailing int) Pointer {
	end := len(p) - skipTrailing
	if skipLeading < 0 || skipTrailing < 0 || skipLeading > end {
		return Pointer{}
	}
	return p[skipLeading:end].Clone()
}

// Keys returns the segment keys, with "-" for placeholders.
func (p Pointer) Keys() []string {
	out := make([]string, len(p))
	for i, seg := range p {
		out[i] = seg.key
	}
	return out
}

// Equal compares two pointers segment by segment.
func (p Pointer) Equal(q Pointer) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// IsGeneric reports whether p contains at least one placeholder.
func (p Pointer) IsGeneric() bool {
	for _, seg := range p {
		if seg.wildcard {
			return true
		}
	}
	return false
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Pointer) HasPrefix(prefix Pointer) bool {
	return IsSubPointer(prefix, p, true)
}

// IsSubPointer reports whether short addresses an ancestor of long. Segments
// are compared whole, so "/a" never prefixes "/ab" and a placeholder never
// matches a property named "-". Equal pointers match only when
// trueIfMatching is set.
func IsSubPointer(short, long Pointer, trueIfMatching bool) bool {
	if len(short) > len(long) {
		return false
	}
	if len(short) == len(long) && !trueIfMatching {
		return false
	}
	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}
	return true
}

// Rebase replaces the prefix from of p with to. It reports false when from
// does not prefix p.
func Rebase(p, from, to Pointer) (Pointer, bool) {
	if !IsSubPointer(from, p, true) {
		return p, false
	}
	return to.Concat(p[len(from):]), true
}
