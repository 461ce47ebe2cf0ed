package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// ErrCatalogUnavailable is returned by Load when the snapshot cannot be fetched.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// FetchRequest carries the parameters of a catalog fetch.
type FetchRequest struct {
	ContextID   int64
	StudentOnly bool
}

// Source delivers full catalog snapshots.
type Source interface {
	FetchCatalog(ctx context.Context, req FetchRequest) (*Snapshot, error)
}

// Catalog is the normalized, read-only catalog for one dialogue.
type Catalog struct {
	// Categories are sorted by display order, ties by id. The unassigned
	// bucket, when present, is last.
	Categories []*Category
	// Components are sorted by display order, ties by id.
	Components []*Component
	// Flavors keep declaration order.
	Flavors  []*Flavor
	Variants []*Variant

	index *catalogIndex
}

// catalogIndex provides O(1) lookups into the catalog.
type catalogIndex struct {
	categoryByID         map[int64]*Category
	componentByID        map[int64]*Component
	componentByName      map[string]*Component
	flavorByID           map[int64]*Flavor
	flavorByName         map[string]*Flavor
	variantByID          map[int64]*Variant
	variantByName        map[string]*Variant
	componentsByCategory map[int64][]*Component
}

// Load fetches a snapshot from src and builds a Catalog from it.
// Entries dropped during normalization are logged at debug level.
func Load(ctx context.Context, src Source, req FetchRequest, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	snap, err := src.FetchCatalog(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: empty snapshot", ErrCatalogUnavailable)
	}

	cat, issues := Build(snap)
	for _, issue := range issues {
		logger.Debug("catalog entry normalized", "issue", issue)
	}
	return cat, nil
}

// Build normalizes a snapshot. It never fails: malformed entries are dropped
// or defaulted and reported in the returned slice.
func Build(snap *Snapshot) (*Catalog, []error) {
	var errs []error
	c := &Catalog{}
	idx := &catalogIndex{
		categoryByID:         make(map[int64]*Category, len(snap.Categories)),
		componentByID:        make(map[int64]*Component, len(snap.Components)),
		componentByName:      make(map[string]*Component, len(snap.Components)),
		flavorByID:           make(map[int64]*Flavor, len(snap.Flavors)),
		flavorByName:         make(map[string]*Flavor, len(snap.Flavors)),
		variantByID:          make(map[int64]*Variant, len(snap.Variants)),
		variantByName:        make(map[string]*Variant, len(snap.Variants)),
		componentsByCategory: make(map[int64][]*Component),
	}
	c.index = idx

	// Categories.
	for i, rec := range snap.Categories {
		if rec.ID == UnassignedCategoryID {
			errs = append(errs, fmt.Errorf("categories[%d]: reserved id %d", i, rec.ID))
			continue
		}
		if _, dup := idx.categoryByID[rec.ID]; dup {
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate id %d", i, rec.ID))
			continue
		}
		cat := &Category{
			ID:           rec.ID,
			Name:         rec.Name,
			DisplayName:  orDefault(rec.DisplayName, rec.Name),
			DisplayOrder: rec.DisplayOrder,
		}
		idx.categoryByID[cat.ID] = cat
		c.Categories = append(c.Categories, cat)
	}
	sort.SliceStable(c.Categories, func(i, j int) bool {
		a, b := c.Categories[i], c.Categories[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})

	// Variants.
	for i, rec := range snap.Variants {
		if rec.Name == "" {
			errs = append(errs, fmt.Errorf("variants[%d]: name is required", i))
			continue
		}
		if _, dup := idx.variantByName[rec.Name]; dup {
			errs = append(errs, fmt.Errorf("variant %q: duplicate name", rec.Name))
			continue
		}
		v := &Variant{
			ID:          rec.ID,
			Name:        rec.Name,
			DisplayName: orDefault(rec.DisplayName, rec.Name),
			Content:     rec.Content,
		}
		idx.variantByName[v.Name] = v
		idx.variantByID[v.ID] = v
		c.Variants = append(c.Variants, v)
	}

	// Flavors, declaration order.
	storedCategories := make(map[string]string, len(snap.Flavors))
	for i, rec := range snap.Flavors {
		if rec.Name == "" {
			errs = append(errs, fmt.Errorf("flavors[%d]: name is required", i))
			continue
		}
		if _, dup := idx.flavorByName[rec.Name]; dup {
			errs = append(errs, fmt.Errorf("flavor %q: duplicate name", rec.Name))
			continue
		}
		f := &Flavor{
			ID:          rec.ID,
			Name:        rec.Name,
			DisplayName: orDefault(rec.DisplayName, rec.Name),
			Content:     rec.Content,
		}
		f.Variants, errs = knownNames(rec.Variants, idx.variantByName, "flavor", f.Name, "variant", errs)
		storedCategories[f.Name] = rec.Categories
		idx.flavorByName[f.Name] = f
		idx.flavorByID[f.ID] = f
		c.Flavors = append(c.Flavors, f)
	}

	// Components.
	unassigned := false
	for i, rec := range snap.Components {
		if rec.Name == "" {
			errs = append(errs, fmt.Errorf("components[%d]: name is required", i))
			continue
		}
		if err := ValidateComponentName(rec.Name); err != nil {
			errs = append(errs, fmt.Errorf("components[%d]: %w", i, err))
			continue
		}
		if _, dup := idx.componentByName[rec.Name]; dup {
			errs = append(errs, fmt.Errorf("component %q: duplicate name", rec.Name))
			continue
		}
		comp := &Component{
			ID:           rec.ID,
			Name:         rec.Name,
			DisplayName:  orDefault(rec.DisplayName, rec.Name),
			CategoryID:   rec.CategoryID,
			Code:         rec.Code,
			PreviewText:  rec.Text,
			IconClass:    orDefault(rec.ImageClass, "snipkit-"+rec.Name+"-icon"),
			DisplayOrder: rec.DisplayOrder,
		}
		if _, ok := idx.categoryByID[comp.CategoryID]; !ok {
			errs = append(errs, fmt.Errorf("component %q: unknown category %d, moved to unassigned", comp.Name, rec.CategoryID))
			comp.CategoryID = UnassignedCategoryID
			unassigned = true
		}
		comp.Variants, errs = knownNames(rec.Variants, idx.variantByName, "component", comp.Name, "variant", errs)
		comp.Flavors, errs = knownNames(rec.Flavors, idx.flavorByName, "component", comp.Name, "flavor", errs)

		idx.componentByName[comp.Name] = comp
		idx.componentByID[comp.ID] = comp
		c.Components = append(c.Components, comp)
	}
	sort.SliceStable(c.Components, func(i, j int) bool {
		a, b := c.Components[i], c.Components[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})
	for _, comp := range c.Components {
		idx.componentsByCategory[comp.CategoryID] = append(idx.componentsByCategory[comp.CategoryID], comp)
	}

	// Derive flavor applicability from component links.
	for _, comp := range c.Components {
		for _, name := range comp.Flavors {
			f := idx.flavorByName[name]
			if !containsID(f.Categories, comp.CategoryID) {
				f.Categories = append(f.Categories, comp.CategoryID)
			}
		}
	}
	for _, f := range c.Flavors {
		sort.Slice(f.Categories, func(i, j int) bool { return f.Categories[i] < f.Categories[j] })
		if f.Unassigned() {
			unassigned = true
		}
		if stored := parseIDList(storedCategories[f.Name]); stored != nil && !sameIDs(stored, f.Categories) {
			errs = append(errs, fmt.Errorf("flavor %q: stored categories %v disagree with derived %v", f.Name, stored, f.Categories))
		}
	}

	if unassigned {
		bucket := &Category{
			ID:          UnassignedCategoryID,
			Name:        "unassigned",
			DisplayName: "Unassigned",
		}
		if n := len(c.Categories); n > 0 {
			bucket.DisplayOrder = c.Categories[n-1].DisplayOrder + 1
		}
		idx.categoryByID[bucket.ID] = bucket
		c.Categories = append(c.Categories, bucket)
	}

	return c, errs
}

// knownNames filters names to those present in known, dropping duplicates
// and empties. Each dropped dangling name is appended to errs.
func knownNames[T any](names []string, known map[string]T, owner, ownerName, kind string, errs []error) ([]string, []error) {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := known[name]; !ok {
			errs = append(errs, fmt.Errorf("%s %q: unknown %s %q dropped", owner, ownerName, kind, name))
			continue
		}
		out = append(out, name)
	}
	return out, errs
}

// parseIDList parses a comma-joined id list. Returns nil for an empty string.
func parseIDList(s string) []int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	ids := make([]int64, 0, strings.Count(s, ",")+1)
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// JoinIDs renders ids in the comma-joined wire form.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
