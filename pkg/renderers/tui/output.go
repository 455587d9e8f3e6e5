package tui

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	gojson "github.com/goccy/go-json"
)

func (f *Filler) serialize(data any) ([]byte, error) {
	switch f.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(data)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(data)), nil
	default:
		return gojson.Marshal(data)
	}
}

// flattenForm encodes data as form fields: nested keys are joined with dots
// and array members repeat their key with a "[]" suffix. Nulls are left out.
func flattenForm(data any) string {
	fields := url.Values{}
	eachLeaf("", data, func(i int) string { return "[]" }, func(path string, v any) {
		if v != nil {
			fields.Add(path, fmt.Sprint(v))
		}
	})
	return fields.Encode()
}

// prettyPrint writes one "path=value" line per scalar, with array positions
// in brackets.
func prettyPrint(data any) string {
	var b strings.Builder
	eachLeaf("", data, func(i int) string { return fmt.Sprintf("[%d]", i) }, func(path string, v any) {
		fmt.Fprintf(&b, "%s=%v\n", path, v)
	})
	return b.String()
}

// eachLeaf calls fn for every scalar below value in key order. index renders
// the path suffix of an array position.
func eachLeaf(path string, value any, index func(int) string, fn func(path string, v any)) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			next := k
			if path != "" {
				next = path + "." + k
			}
			eachLeaf(next, v[k], index, fn)
		}
	case []any:
		for i, item := range v {
			eachLeaf(path+index(i), item, index, fn)
		}
	default:
		if path != "" {
			fn(path, v)
		}
	}
}
