// Package i18n serves localized strings for {{#key}} template tokens and
// variant titles. String tables are flat YAML maps, one file per locale
// named <locale>.yaml.
package i18n

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Value is the result of one key lookup.
type Value struct {
	Text  string
	Found bool
}

// Bundle holds the string tables of every loaded locale.
type Bundle struct {
	fallback language.Tag
	tags     []language.Tag
	tables   map[language.Tag]map[string]string

	supported []language.Tag
	matcher   language.Matcher
}

// LoadFS reads every *.yaml file at the root of fsys. Files whose name is not
// a valid BCP 47 tag are rejected.
func LoadFS(fsys fs.FS) (*Bundle, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list string tables: %w", err)
	}
	sort.Strings(names)

	b := &Bundle{
		fallback: language.English,
		tables:   make(map[language.Tag]map[string]string, len(names)),
	}
	for _, name := range names {
		tag, err := language.Parse(strings.TrimSuffix(path.Base(name), ".yaml"))
		if err != nil {
			return nil, fmt.Errorf("invalid locale file name %q: %w", name, err)
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read string table %s: %w", name, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse string table %s: %w", name, err)
		}
		b.add(tag, table)
	}
	b.rebuildMatcher()
	return b, nil
}

// LoadDir reads string tables from a directory on disk.
func LoadDir(dir string) (*Bundle, error) {
	return LoadFS(os.DirFS(dir))
}

// Merge overlays other on b; keys in other win.
func (b *Bundle) Merge(other *Bundle) {
	for _, tag := range other.tags {
		b.add(tag, other.tables[tag])
	}
	b.rebuildMatcher()
}

func (b *Bundle) add(tag language.Tag, table map[string]string) {
	existing, ok := b.tables[tag]
	if !ok {
		existing = make(map[string]string, len(table))
		b.tables[tag] = existing
		b.tags = append(b.tags, tag)
	}
	for k, v := range table {
		existing[k] = v
	}
}

func (b *Bundle) rebuildMatcher() {
	// The fallback goes first so the matcher defaults to it.
	tags := []language.Tag{b.fallback}
	for _, t := range b.tags {
		if t != b.fallback {
			tags = append(tags, t)
		}
	}
	b.supported = tags
	b.matcher = language.NewMatcher(tags)
}

// Locales returns the loaded locales.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.tags))
	for i, t := range b.tags {
		out[i] = t.String()
	}
	sort.Strings(out)
	return out
}

// Localizer returns a view of b for the best match of the given locale
// preferences, e.g. "de-AT" or an Accept-Language header.
func (b *Bundle) Localizer(locale string) *Localizer {
	prefs, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(prefs) == 0 {
		prefs = []language.Tag{b.fallback}
	}
	_, idx, conf := b.matcher.Match(prefs...)
	matched := b.fallback
	if conf != language.No {
		matched = b.supported[idx]
	}
	return &Localizer{bundle: b, tag: matched}
}

// Localizer resolves keys for one locale, falling back to English.
type Localizer struct {
	bundle *Bundle
	tag    language.Tag
}

// Locale returns the matched locale.
func (l *Localizer) Locale() string { return l.tag.String() }

// Lookup resolves a single key.
func (l *Localizer) Lookup(key string) (string, bool) {
	if v, ok := l.bundle.tables[l.tag][key]; ok {
		return v, true
	}
	if v, ok := l.bundle.tables[l.bundle.fallback][key]; ok {
		return v, true
	}
	return "", false
}

// LookupStrings resolves keys in order. Missing keys yield a Value with
// Found false; they never fail the batch.
func (l *Localizer) LookupStrings(ctx context.Context, keys []string) ([]Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Value, len(keys))
	for i, key := range keys {
		text, ok := l.Lookup(key)
		out[i] = Value{Text: text, Found: ok}
	}
	return out, nil
}

// Title returns the localized title for an internal name, or the name
// title-cased ("full-width" becomes "Full Width") when no string exists.
func (l *Localizer) Title(name string) string {
	if v, ok := l.Lookup(name); ok {
		return v
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(l.tag).String(strings.Join(words, " "))
}
