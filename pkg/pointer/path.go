package pointer

import (
	"fmt"
	"strings"
)

// ParseObjectPath converts a dotted/bracket object path such as
// `address.street`, `tags[0]`, `friends[].name` or `a["b.c"]` to a pointer.
// Empty brackets become placeholders. Strings starting with "/" are parsed as
// pointers.
func ParseObjectPath(path string) (Pointer, error) {
	if path == "" {
		return Pointer{}, nil
	}
	if path[0] == '/' || path[0] == '#' {
		return Parse(path)
	}
	var (
		out     Pointer
		current strings.Builder
		pending bool
	)
	flush := func() {
		if pending || current.Len() > 0 {
			out = append(out, Key(current.String()))
		}
		current.Reset()
		pending = false
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, &Error{Input: path, Reason: "unterminated '['"}
			}
			inner := strings.TrimSpace(path[i+1 : i+end])
			switch {
			case inner == "":
				out = append(out, AnyIndex())
			case len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0]:
				out = append(out, Key(inner[1:len(inner)-1]))
			default:
				out = append(out, Key(inner))
			}
			i += end
		case ']':
			return nil, &Error{Input: path, Reason: fmt.Sprintf("unexpected ']' at %d", i)}
		default:
			current.WriteByte(c)
			pending = true
		}
	}
	flush()
	return out, nil
}
