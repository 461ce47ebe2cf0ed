package catalog

// Snapshot is the wire form of a single catalog fetch.
type Snapshot struct {
	Categories []CategoryRecord  `json:"categories"`
	Components []ComponentRecord `json:"components"`
	Flavors    []FlavorRecord    `json:"flavors"`
	Variants   []VariantRecord   `json:"variants"`
}

// CategoryRecord is a category as delivered by a Source.
type CategoryRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayname"`
	DisplayOrder int    `json:"displayorder"`
}

// ComponentRecord is a component as delivered by a Source.
// Variants and Flavors hold names, not ids.
type ComponentRecord struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	DisplayName     string   `json:"displayname"`
	CategoryID      int64    `json:"compcat"`
	ImageClass      string   `json:"imageclass"`
	Code            string   `json:"code"`
	Text            string   `json:"text"`
	Variants        []string `json:"variants"`
	Flavors         []string `json:"flavors"`
	DisplayOrder    int      `json:"displayorder"`
	HideForStudents bool     `json:"hideforstudents,omitempty"`
}

// FlavorRecord is a flavor as delivered by a Source.
// Categories is a comma-joined list of category ids. It is a denormalized
// cache; Build derives the authoritative set from component links.
type FlavorRecord struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	DisplayName     string   `json:"displayname"`
	Content         string   `json:"content"`
	Categories      string   `json:"categories"`
	Variants        []string `json:"variants,omitempty"`
	HideForStudents bool     `json:"hideforstudents,omitempty"`
}

// VariantRecord is a variant as delivered by a Source.
type VariantRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayname"`
	Content     string `json:"content"`
}

// UnassignedCategoryID is the id of the synthetic bucket holding components
// whose category is unknown and flavors no component uses.
const UnassignedCategoryID int64 = -1

// Category groups components and is shown as a filter button.
type Category struct {
	ID           int64
	Name         string
	DisplayName  string
	DisplayOrder int
}

// Component is a reusable HTML snippet template.
type Component struct {
	ID          int64
	Name        string
	DisplayName string
	CategoryID  int64
	Code        string
	PreviewText string
	IconClass   string
	// Variants lists eligible variant names in declaration order.
	Variants []string
	// Flavors lists eligible flavor names in declaration order.
	Flavors      []string
	DisplayOrder int
}

// HasFlavors reports whether the component is restricted to a set of flavors.
func (c *Component) HasFlavors() bool {
	return len(c.Flavors) > 0
}

// SupportsFlavor reports whether flavor may be applied to c. Components
// without a flavor list accept any flavor.
func (c *Component) SupportsFlavor(flavor string) bool {
	if !c.HasFlavors() {
		return true
	}
	return contains(c.Flavors, flavor)
}

// SupportsVariant reports whether variant is in the component's eligible set.
func (c *Component) SupportsVariant(variant string) bool {
	return contains(c.Variants, variant)
}

// Flavor is a named visual skin.
type Flavor struct {
	ID          int64
	Name        string
	DisplayName string
	Content     string
	// Categories is derived from the components listing this flavor, ascending.
	Categories []int64
	// Variants optionally restricts which variants apply under this flavor.
	// Empty means no restriction.
	Variants []string
}

// Unassigned reports whether no component lists the flavor.
func (f *Flavor) Unassigned() bool {
	return len(f.Categories) == 0
}

// AppliesTo reports whether the flavor is shown under category id.
func (f *Flavor) AppliesTo(categoryID int64) bool {
	if f.Unassigned() {
		return categoryID == UnassignedCategoryID
	}
	for _, id := range f.Categories {
		if id == categoryID {
			return true
		}
	}
	return false
}

// Variant is an optional modifier adding a class and/or an HTML fragment.
type Variant struct {
	ID          int64
	Name        string
	DisplayName string
	Content     string
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
