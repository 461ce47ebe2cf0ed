package i18n

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/gnana997/snipkit/catalogs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"en.yaml": {Data: []byte("title: Title\nbody: Body\nonly-en: English only\n")},
		"de.yaml": {Data: []byte("title: Titel\nbody: Inhalt\n")},
	}
}

func TestLoadFS(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "en"}, b.Locales())
}

func TestLoadFS_Errors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"not a tag!.yaml": {Data: []byte("a: b")}})
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"en.yaml": {Data: []byte("- a\n- b\n")}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse string table")
}

func TestLocalizer_Matching(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)

	tests := []struct {
		locale string
		want   string
	}{
		{"de", "de"},
		{"de-AT", "de"},
		{"fr-CH, de;q=0.8", "de"},
		{"en-GB", "en"},
		{"fr", "en"},
		{"", "en"},
		{"%%%", "en"},
	}
	for _, tc := range tests {
		t.Run(tc.locale, func(t *testing.T) {
			assert.Equal(t, tc.want, b.Localizer(tc.locale).Locale())
		})
	}
}

func TestLookupStrings(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)
	l := b.Localizer("de")

	got, err := l.LookupStrings(context.Background(), []string{"title", "only-en", "missing", "body"})
	require.NoError(t, err)
	assert.Equal(t, []Value{
		{Text: "Titel", Found: true},
		{Text: "English only", Found: true},
		{Text: "", Found: false},
		{Text: "Inhalt", Found: true},
	}, got)
}

func TestLookupStrings_Cancelled(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Localizer("en").LookupStrings(ctx, []string{"title"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTitle(t *testing.T) {
	b, err := LoadFS(testFS())
	require.NoError(t, err)
	l := b.Localizer("en")

	assert.Equal(t, "Title", l.Title("title"))
	assert.Equal(t, "Full Width", l.Title("full-width"))
	assert.Equal(t, "Inline Tag", l.Title("inline_tag"))
}

func TestMerge(t *testing.T) {
	base, err := LoadFS(testFS())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "de.yaml"), []byte("title: Überschrift\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr.yaml"), []byte("title: Titre\n"), 0o644))
	overlay, err := LoadDir(dir)
	require.NoError(t, err)

	base.Merge(overlay)
	assert.Equal(t, []string{"de", "en", "fr"}, base.Locales())

	de := base.Localizer("de")
	v, _ := de.Lookup("title")
	assert.Equal(t, "Überschrift", v)
	v, _ = de.Lookup("body")
	assert.Equal(t, "Inhalt", v, "keys absent from the overlay survive")

	assert.Equal(t, "fr", base.Localizer("fr").Locale())
}

func TestBaseCatalogStrings(t *testing.T) {
	b, err := LoadFS(catalogs.BaseLang())
	require.NoError(t, err)
	assert.Contains(t, b.Locales(), "en")

	v, ok := b.Localizer("de").Lookup("keyconcept")
	assert.True(t, ok)
	assert.Equal(t, "Schlüsselkonzept", v)
}
