package selection

import "github.com/gnana997/snipkit/pkg/catalog"

// VariantState is one variant toggle of a component.
type VariantState struct {
	Variant *catalog.Variant
	Active  bool
}

// VisibleFlavors returns the flavors shown under the current category.
func (m *Machine) VisibleFlavors() []*catalog.Flavor {
	return m.cat.FlavorsApplicableTo(m.categoryID)
}

// VisibleComponents returns the components shown for the current category
// and flavor: those without a flavor restriction, plus those listing the
// current flavor. With no flavor selected every component of the category
// is shown.
func (m *Machine) VisibleComponents() []*catalog.Component {
	all := m.cat.ComponentsInCategory(m.categoryID)
	if !m.hasFlavor {
		return all
	}
	out := make([]*catalog.Component, 0, len(all))
	for _, comp := range all {
		if comp.SupportsFlavor(m.flavorName) {
			out = append(out, comp)
		}
	}
	return out
}

// IsVisible reports whether the named component is currently shown.
func (m *Machine) IsVisible(componentName string) bool {
	comp, ok := m.cat.ComponentByName(componentName)
	if !ok || comp.CategoryID != m.categoryID {
		return false
	}
	return !m.hasFlavor || comp.SupportsFlavor(m.flavorName)
}

// EffectiveFlavor returns the flavor name applied to a component: empty when
// the component has no eligible flavors or no flavor is selected.
func (m *Machine) EffectiveFlavor(componentName string) string {
	comp, ok := m.cat.ComponentByName(componentName)
	if !ok {
		return ""
	}
	return m.effectiveFlavor(comp)
}

// ActiveVariants returns the active variants of a component under the current
// flavor, in activation order. Names that are no longer eligible, or no longer
// in the catalog, are skipped.
func (m *Machine) ActiveVariants(componentName string) []*catalog.Variant {
	comp, ok := m.cat.ComponentByName(componentName)
	if !ok {
		return nil
	}
	flavor := m.effectiveFlavor(comp)
	eligible := m.cat.VariantsEligibleFor(comp.Name, flavor)

	var out []*catalog.Variant
	for _, name := range m.variants[m.scope(comp)] {
		for _, v := range eligible {
			if v.Name == name {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// ActiveVariantNames is ActiveVariants reduced to names.
func (m *Machine) ActiveVariantNames(componentName string) []string {
	active := m.ActiveVariants(componentName)
	names := make([]string, len(active))
	for i, v := range active {
		names[i] = v.Name
	}
	return names
}

// VariantStates returns every variant the component may toggle under the
// current flavor, in declaration order, with its active flag.
func (m *Machine) VariantStates(componentName string) []VariantState {
	comp, ok := m.cat.ComponentByName(componentName)
	if !ok {
		return nil
	}
	active := make(map[string]bool)
	for _, v := range m.ActiveVariants(componentName) {
		active[v.Name] = true
	}
	eligible := m.cat.VariantsEligibleFor(comp.Name, m.effectiveFlavor(comp))
	out := make([]VariantState, len(eligible))
	for i, v := range eligible {
		out[i] = VariantState{Variant: v, Active: active[v.Name]}
	}
	return out
}
