package catalog

// Category looks up a category by id.
func (c *Catalog) Category(id int64) (*Category, bool) {
	cat, ok := c.index.categoryByID[id]
	return cat, ok
}

// Component looks up a component by id.
func (c *Catalog) Component(id int64) (*Component, bool) {
	comp, ok := c.index.componentByID[id]
	return comp, ok
}

// ComponentByName looks up a component by its internal name.
func (c *Catalog) ComponentByName(name string) (*Component, bool) {
	comp, ok := c.index.componentByName[name]
	return comp, ok
}

// Flavor looks up a flavor by id.
func (c *Catalog) Flavor(id int64) (*Flavor, bool) {
	f, ok := c.index.flavorByID[id]
	return f, ok
}

// FlavorByName looks up a flavor by its internal name.
func (c *Catalog) FlavorByName(name string) (*Flavor, bool) {
	f, ok := c.index.flavorByName[name]
	return f, ok
}

// Variant looks up a variant by id.
func (c *Catalog) Variant(id int64) (*Variant, bool) {
	v, ok := c.index.variantByID[id]
	return v, ok
}

// VariantByName looks up a variant by its internal name.
func (c *Catalog) VariantByName(name string) (*Variant, bool) {
	v, ok := c.index.variantByName[name]
	return v, ok
}

// DefaultCategory returns the category active when nothing is remembered:
// the one with display order 1, else the first in sort order. The unassigned
// bucket is only chosen when it is the sole category.
// Returns nil for an empty catalog.
func (c *Catalog) DefaultCategory() *Category {
	if len(c.Categories) == 0 {
		return nil
	}
	for _, cat := range c.Categories {
		if cat.DisplayOrder == 1 && cat.ID != UnassignedCategoryID {
			return cat
		}
	}
	for _, cat := range c.Categories {
		if cat.ID != UnassignedCategoryID {
			return cat
		}
	}
	return c.Categories[0]
}

// ComponentsInCategory returns the components of a category in display order.
func (c *Catalog) ComponentsInCategory(categoryID int64) []*Component {
	return c.index.componentsByCategory[categoryID]
}

// FlavorsApplicableTo returns the flavors shown under a category, in
// declaration order.
func (c *Catalog) FlavorsApplicableTo(categoryID int64) []*Flavor {
	var out []*Flavor
	for _, f := range c.Flavors {
		if f.AppliesTo(categoryID) {
			out = append(out, f)
		}
	}
	return out
}

// VariantsEligibleFor returns the variants a component supports under a
// flavor. When the flavor restricts variants, the component's eligible set is
// intersected with that restriction; otherwise every eligible variant applies.
// Unknown components yield nil.
func (c *Catalog) VariantsEligibleFor(componentName, flavorName string) []*Variant {
	comp, ok := c.index.componentByName[componentName]
	if !ok {
		return nil
	}
	var restrict []string
	if f, ok := c.index.flavorByName[flavorName]; ok && comp.SupportsFlavor(flavorName) {
		restrict = f.Variants
	}

	out := make([]*Variant, 0, len(comp.Variants))
	for _, name := range comp.Variants {
		if len(restrict) > 0 && !contains(restrict, name) {
			continue
		}
		if v, ok := c.index.variantByName[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// CodeTemplates returns the raw code of every component, in display order.
func (c *Catalog) CodeTemplates() []string {
	out := make([]string, len(c.Components))
	for i, comp := range c.Components {
		out[i] = comp.Code
	}
	return out
}
