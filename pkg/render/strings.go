package render

import (
	"regexp"
)

var (
	stringKeyPattern = regexp.MustCompile(`\{\{#([^}]*)\}\}`)
	idPattern        = regexp.MustCompile(`\{\{@ID\}\}`)
)

// StringTable maps {{#key}} keys to localized text. A missing key leaves
// its token untouched.
type StringTable map[string]string

// ScanKeys returns every {{#key}} key referenced by codes, deduplicated in
// first-seen order.
func ScanKeys(codes []string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, code := range codes {
		for _, m := range stringKeyPattern.FindAllStringSubmatch(code, -1) {
			key := m[1]
			if seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// apply replaces every resolvable {{#key}} token in text.
func (t StringTable) apply(text string) string {
	if len(t) == 0 {
		return text
	}
	return stringKeyPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := token[3 : len(token)-2]
		if v, ok := t[key]; ok {
			return v
		}
		return token
	})
}
