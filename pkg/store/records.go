package store

// Category is a stored component category.
type Category struct {
	ID           int64
	Name         string
	DisplayName  string
	DisplayOrder int
	CSS          string
}

// Component is a stored component. Flavors mirror the comp_flavor relation.
type Component struct {
	ID              int64
	Name            string
	DisplayName     string
	CategoryID      int64
	ImageClass      string
	Code            string
	Text            string
	Variants        []string
	Flavors         []string
	DisplayOrder    int
	CSS             string
	JS              string
	IconURL         string
	HideForStudents bool
}

// Flavor is a stored flavor. Variants optionally restrict which variants
// may be toggled under it.
type Flavor struct {
	ID              int64
	Name            string
	DisplayName     string
	Content         string
	CSS             string
	Variants        []string
	HideForStudents bool
}

// Variant is a stored variant.
type Variant struct {
	ID          int64
	Name        string
	DisplayName string
	Content     string
	CSS         string
	IconURL     string
}

// ComponentFlavor links a component to a flavor, optionally with its own
// button icon.
type ComponentFlavor struct {
	ID            int64
	ComponentName string
	FlavorName    string
	IconURL       string
}

// Dataset is every catalog table, as stored.
type Dataset struct {
	Categories       []Category
	Components       []Component
	Flavors          []Flavor
	Variants         []Variant
	ComponentFlavors []ComponentFlavor
}
