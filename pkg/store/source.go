package store

import (
	"context"
	"fmt"

	"github.com/gnana997/snipkit/pkg/catalog"
)

// FetchCatalog implements catalog.Source. Flavor categories are derived
// from the component links, asset tokens are expanded, and hidden entries
// are dropped for students.
func (s *Store) FetchCatalog(ctx context.Context, req catalog.FetchRequest) (*catalog.Snapshot, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	snap := s.Snapshot(ds)
	if req.StudentOnly {
		snap = catalog.FilterForStudents(snap)
	}
	s.logger.Debug("served catalog",
		"context", req.ContextID,
		"student", req.StudentOnly,
		"components", len(snap.Components))
	return snap, nil
}

// Snapshot converts stored tables to the catalog wire form.
func (s *Store) Snapshot(ds *Dataset) *catalog.Snapshot {
	expand := func(v string) string { return catalog.ExpandAssets(v, s.assetBaseURL) }

	snap := &catalog.Snapshot{}
	for _, c := range ds.Categories {
		snap.Categories = append(snap.Categories, catalog.CategoryRecord{
			ID:           c.ID,
			Name:         c.Name,
			DisplayName:  c.DisplayName,
			DisplayOrder: c.DisplayOrder,
		})
	}

	flavorCategories := make(map[string][]int64)
	for _, c := range ds.Components {
		for _, f := range c.Flavors {
			flavorCategories[f] = appendUnique(flavorCategories[f], c.CategoryID)
		}
		snap.Components = append(snap.Components, catalog.ComponentRecord{
			ID:              c.ID,
			Name:            c.Name,
			DisplayName:     c.DisplayName,
			CategoryID:      c.CategoryID,
			ImageClass:      c.ImageClass,
			Code:            expand(c.Code),
			Text:            c.Text,
			Variants:        c.Variants,
			Flavors:         c.Flavors,
			DisplayOrder:    c.DisplayOrder,
			HideForStudents: c.HideForStudents,
		})
	}

	for _, f := range ds.Flavors {
		snap.Flavors = append(snap.Flavors, catalog.FlavorRecord{
			ID:              f.ID,
			Name:            f.Name,
			DisplayName:     f.DisplayName,
			Content:         expand(f.Content),
			Categories:      catalog.JoinIDs(flavorCategories[f.Name]),
			Variants:        f.Variants,
			HideForStudents: f.HideForStudents,
		})
	}

	for _, v := range ds.Variants {
		snap.Variants = append(snap.Variants, catalog.VariantRecord{
			ID:          v.ID,
			Name:        v.Name,
			DisplayName: v.DisplayName,
			Content:     expand(v.Content),
		})
	}
	return snap
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
