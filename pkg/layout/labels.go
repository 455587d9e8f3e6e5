package layout

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabel turns a property name into a title: words split on
// underscores, dashes, spaces and camelCase boundaries, each capitalized.
// Numeric names, such as tuple indices, are returned unchanged.
func DefaultLabel(name string) string {
	if name == "" || name == "-" {
		return ""
	}
	var segments []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		for _, part := range strings.Fields(splitCamel(word)) {
			segments = append(segments, capitalize(part))
		}
	}
	return strings.Join(segments, " ")
}

func splitCamel(input string) string {
	runes := []rune(input)
	var out strings.Builder
	for i, r := range runes {
		if i > 0 && isBoundary(runes[i-1], r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(prev, r rune) bool {
	return (unicode.IsLower(prev) && unicode.IsUpper(r)) ||
		(unicode.IsLetter(prev) && unicode.IsDigit(r)) ||
		(unicode.IsDigit(prev) && unicode.IsLetter(r))
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizedOptions lists the options holding author supplied markup.
var sanitizedOptions = []string{"title", "description", "help", "add", "helpvalue"}

// Sanitize strips unsafe markup from a display string with the UGC policy.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.UGCPolicy()
	})
	return strings.TrimSpace(textPolicy.Sanitize(trimmed))
}

func sanitizeOptions(options map[string]any) {
	for _, key := range sanitizedOptions {
		if s, ok := options[key].(string); ok {
			options[key] = Sanitize(s)
		}
	}
}
