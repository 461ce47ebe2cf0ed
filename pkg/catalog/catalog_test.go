package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnana997/snipkit/catalogs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

func testSnapshot() *Snapshot {
	return &Snapshot{
		Categories: []CategoryRecord{
			{ID: 2, Name: "procedural", DisplayName: "Procedural", DisplayOrder: 2},
			{ID: 1, Name: "contextual", DisplayName: "Contextual", DisplayOrder: 1},
		},
		Components: []ComponentRecord{
			{ID: 10, Name: "card", CategoryID: 1, Code: "<div class='{{VARIANTS}} {{FLAVOR}}'>{{PLACEHOLDER}}</div>", Variants: []string{"bold"}, Flavors: []string{"blue"}, DisplayOrder: 2},
			{ID: 11, Name: "tag", CategoryID: 1, Code: "<span>{{PLACEHOLDER}}</span>", DisplayOrder: 1},
			{ID: 12, Name: "steps", CategoryID: 2, Code: "<ol>{{PLACEHOLDER}}</ol>", Flavors: []string{"blue", "red"}},
		},
		Flavors: []FlavorRecord{
			{ID: 5, Name: "blue", Categories: "1,2"},
			{ID: 6, Name: "red", Categories: "2"},
		},
		Variants: []VariantRecord{
			{ID: 1, Name: "bold", Content: "<b></b>"},
			{ID: 2, Name: "wide"},
		},
	}
}

func writeTempSnapshot(t *testing.T, snap *Snapshot) string {
	t.Helper()
	data, err := json.MarshalIndent(snap, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

type failingSource struct{ err error }

func (f failingSource) FetchCatalog(context.Context, FetchRequest) (*Snapshot, error) {
	return nil, f.err
}

// --- Build() tests ---

func TestBuild_Valid(t *testing.T) {
	cat, errs := Build(testSnapshot())
	assert.Empty(t, errs)
	require.Len(t, cat.Categories, 2)
	assert.Equal(t, int64(1), cat.Categories[0].ID)
	assert.Equal(t, int64(2), cat.Categories[1].ID)
	assert.Len(t, cat.Components, 3)
	assert.Len(t, cat.Flavors, 2)
	assert.Len(t, cat.Variants, 2)
}

func TestBuild_CategoryTieBreaksByID(t *testing.T) {
	snap := &Snapshot{Categories: []CategoryRecord{
		{ID: 9, Name: "b", DisplayOrder: 1},
		{ID: 3, Name: "a", DisplayOrder: 1},
	}}
	cat, _ := Build(snap)
	require.Len(t, cat.Categories, 2)
	assert.Equal(t, int64(3), cat.Categories[0].ID)
}

func TestBuild_DerivesFlavorCategories(t *testing.T) {
	cat, _ := Build(testSnapshot())
	blue, ok := cat.FlavorByName("blue")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2}, blue.Categories)
	red, _ := cat.FlavorByName("red")
	assert.Equal(t, []int64{2}, red.Categories)
}

func TestBuild_StoredFlavorCategoriesDisagree(t *testing.T) {
	snap := testSnapshot()
	snap.Flavors[1].Categories = "1"
	cat, errs := Build(snap)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "disagree")

	red, _ := cat.FlavorByName("red")
	assert.Equal(t, []int64{2}, red.Categories, "derived set is authoritative")
}

func TestBuild_DropsDanglingNames(t *testing.T) {
	snap := testSnapshot()
	snap.Components[0].Variants = []string{"bold", "ghost", "bold", ""}
	snap.Components[0].Flavors = []string{"blue", "gone"}
	cat, errs := Build(snap)
	assert.Len(t, errs, 2)

	card, ok := cat.ComponentByName("card")
	require.True(t, ok)
	assert.Equal(t, []string{"bold"}, card.Variants)
	assert.Equal(t, []string{"blue"}, card.Flavors)
}

func TestBuild_DuplicateAndEmptyComponentNames(t *testing.T) {
	snap := testSnapshot()
	snap.Components = append(snap.Components,
		ComponentRecord{ID: 20, Name: "card", CategoryID: 1},
		ComponentRecord{ID: 21, Name: "", CategoryID: 1},
	)
	cat, errs := Build(snap)
	assert.Len(t, errs, 2)
	assert.Len(t, cat.Components, 3)
	_, ok := cat.Component(20)
	assert.False(t, ok)
}

func TestBuild_DropsInvalidComponentNames(t *testing.T) {
	snap := testSnapshot()
	snap.Components = append(snap.Components,
		ComponentRecord{ID: 22, Name: "card@v2", CategoryID: 1},
		ComponentRecord{ID: 23, Name: "2col", CategoryID: 1},
		ComponentRecord{ID: 24, Name: "two words", CategoryID: 1},
		ComponentRecord{ID: 25, Name: "_side-note", CategoryID: 1},
	)
	cat, errs := Build(snap)
	require.Len(t, errs, 3)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrInvalidName)
	}
	_, ok := cat.ComponentByName("card@v2")
	assert.False(t, ok)
	_, ok = cat.ComponentByName("_side-note")
	assert.True(t, ok)
}

func TestValidateComponentName(t *testing.T) {
	for _, name := range []string{"card", "Card_2", "_x", "full-width"} {
		assert.NoError(t, ValidateComponentName(name), name)
	}
	for _, name := range []string{"", "card@v2", "9lives", "-dash", "a b", "tip.big"} {
		assert.ErrorIs(t, ValidateComponentName(name), ErrInvalidName, name)
	}
}

func TestBuild_UnassignedBucket(t *testing.T) {
	snap := testSnapshot()
	snap.Components = append(snap.Components, ComponentRecord{ID: 30, Name: "orphan", CategoryID: 99})
	snap.Flavors = append(snap.Flavors, FlavorRecord{ID: 7, Name: "lonely"})
	cat, errs := Build(snap)
	assert.NotEmpty(t, errs)

	last := cat.Categories[len(cat.Categories)-1]
	assert.Equal(t, UnassignedCategoryID, last.ID)
	assert.Greater(t, last.DisplayOrder, cat.Categories[0].DisplayOrder)

	orphans := cat.ComponentsInCategory(UnassignedCategoryID)
	require.Len(t, orphans, 1)
	assert.Equal(t, "orphan", orphans[0].Name)

	flavors := cat.FlavorsApplicableTo(UnassignedCategoryID)
	require.Len(t, flavors, 1)
	assert.Equal(t, "lonely", flavors[0].Name)
}

func TestBuild_NoUnassignedBucketWhenClean(t *testing.T) {
	cat, _ := Build(testSnapshot())
	_, ok := cat.Category(UnassignedCategoryID)
	assert.False(t, ok)
}

func TestBuild_Defaults(t *testing.T) {
	cat, _ := Build(testSnapshot())
	tag, _ := cat.ComponentByName("tag")
	assert.Equal(t, "tag", tag.DisplayName)
	assert.Equal(t, "snipkit-tag-icon", tag.IconClass)
}

// --- Load() tests ---

func TestLoad_WrapsFetchError(t *testing.T) {
	_, err := Load(context.Background(), failingSource{err: errors.New("boom")}, FetchRequest{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestLoad_StudentFilter(t *testing.T) {
	snap := testSnapshot()
	snap.Components[1].HideForStudents = true
	snap.Flavors[1].HideForStudents = true

	cat, err := Load(context.Background(), StaticSource{Snapshot: snap}, FetchRequest{StudentOnly: true}, nil)
	require.NoError(t, err)
	_, ok := cat.ComponentByName("tag")
	assert.False(t, ok)
	_, ok = cat.FlavorByName("red")
	assert.False(t, ok)

	steps, _ := cat.ComponentByName("steps")
	assert.Equal(t, []string{"blue"}, steps.Flavors)
}

// --- File loading ---

func TestLoadFromFile_Valid(t *testing.T) {
	path := writeTempSnapshot(t, testSnapshot())
	cat, issues, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, issues)
	_, ok := cat.ComponentByName("card")
	assert.True(t, ok)
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	_, _, err := LoadFromFile("/nonexistent/path/catalog.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog file")
}

func TestLoadFromFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{invalid json}"), 0644))
	_, _, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse catalog JSON")
}

func TestFileSource_ReloadKeepsLastGood(t *testing.T) {
	path := writeTempSnapshot(t, testSnapshot())
	src, err := NewFileSource(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))
	assert.Error(t, src.Reload())

	snap, err := src.FetchCatalog(context.Background(), FetchRequest{})
	require.NoError(t, err)
	assert.Len(t, snap.Components, 3)
}

func TestFileSource_Reload(t *testing.T) {
	path := writeTempSnapshot(t, testSnapshot())
	src, err := NewFileSource(path)
	require.NoError(t, err)

	updated := testSnapshot()
	updated.Components = updated.Components[:1]
	data, err := json.Marshal(updated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	require.NoError(t, src.Reload())

	snap, err := src.FetchCatalog(context.Background(), FetchRequest{})
	require.NoError(t, err)
	assert.Len(t, snap.Components, 1)
}

// --- Embedded base catalog ---

func TestLoadFromBytes_BaseCatalog(t *testing.T) {
	cat, issues, err := LoadFromBytes(catalogs.BaseJSON)
	require.NoError(t, err, "base catalog should parse")
	assert.Empty(t, issues, "base catalog should normalize cleanly")

	assert.Len(t, cat.Categories, 3)
	assert.Equal(t, "contextual", cat.DefaultCategory().Name)

	kc, ok := cat.ComponentByName("keyconcept")
	require.True(t, ok)
	assert.Equal(t, []string{"comfort", "contrast"}, kc.Flavors)
}

func TestJoinIDs(t *testing.T) {
	assert.Equal(t, "", JoinIDs(nil))
	assert.Equal(t, "1,2,30", JoinIDs([]int64{1, 2, 30}))
	assert.Equal(t, []int64{1, 2, 30}, parseIDList(" 30,2, 1 ,2,x"))
}
