package dialogue

import "github.com/gnana997/snipkit/pkg/catalog"

// View is the button set the dialogue shows.
type View struct {
	CategoryID int64             `json:"category_id"`
	FlavorID   int64             `json:"flavor_id,omitempty"`
	Categories []CategoryButton  `json:"categories"`
	Flavors    []FlavorButton    `json:"flavors"`
	Components []ComponentButton `json:"components"`
}

// CategoryButton is one filter button.
type CategoryButton struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// FlavorButton is one flavor button of the current category.
type FlavorButton struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// ComponentButton is one visible component with its variant toggles.
type ComponentButton struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Title     string          `json:"title"`
	IconClass string          `json:"icon_class"`
	Flavor    string          `json:"flavor,omitempty"`
	Variants  []VariantButton `json:"variants,omitempty"`
}

// VariantButton is one variant toggle.
type VariantButton struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// view builds the View. Callers hold d.mu.
func (d *Dialogue) view() View {
	v := View{CategoryID: d.machine.CategoryID()}
	flavorID, _, hasFlavor := d.machine.Flavor()
	if hasFlavor {
		v.FlavorID = flavorID
	}

	for _, c := range d.cat.Categories {
		v.Categories = append(v.Categories, CategoryButton{
			ID:     c.ID,
			Name:   c.Name,
			Title:  c.DisplayName,
			Active: c.ID == v.CategoryID,
		})
	}
	for _, f := range d.machine.VisibleFlavors() {
		v.Flavors = append(v.Flavors, FlavorButton{
			ID:     f.ID,
			Name:   f.Name,
			Title:  f.DisplayName,
			Active: hasFlavor && f.ID == flavorID,
		})
	}
	for _, comp := range d.machine.VisibleComponents() {
		v.Components = append(v.Components, d.componentButton(comp))
	}
	return v
}

func (d *Dialogue) componentButton(comp *catalog.Component) ComponentButton {
	btn := ComponentButton{
		ID:        comp.ID,
		Name:      comp.Name,
		Title:     comp.DisplayName,
		IconClass: comp.IconClass,
		Flavor:    d.machine.EffectiveFlavor(comp.Name),
	}
	for _, state := range d.machine.VariantStates(comp.Name) {
		btn.Variants = append(btn.Variants, VariantButton{
			Name:   state.Variant.Name,
			Title:  d.variantTitle(state.Variant),
			Active: state.Active,
		})
	}
	return btn
}

func (d *Dialogue) variantTitle(v *catalog.Variant) string {
	if title, ok := d.resolver.Strings()[v.Name]; ok {
		return title
	}
	return v.DisplayName
}
