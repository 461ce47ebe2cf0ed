// Package selection tracks the current category, flavor, and per-component
// variant toggles of one open insertion dialogue.
package selection

import (
	"errors"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/prefs"
)

// ErrClosed is returned by transitions after Close.
var ErrClosed = errors.New("selection closed")

// Machine is the selection state of a single dialogue. It is not safe for
// concurrent use; the owning dialogue serializes access.
type Machine struct {
	cat *catalog.Catalog

	categoryID int64
	flavorID   int64
	flavorName string
	hasFlavor  bool

	lastFlavor map[int64]int64
	variants   map[prefs.VariantKey][]string

	closed bool
}

// New builds a machine over cat seeded from decoded preferences. The initial
// category is the seeded one when it still exists, else the catalog default;
// its flavor is then resolved as SelectCategory does.
func New(cat *catalog.Catalog, seed prefs.Seed) *Machine {
	m := &Machine{
		cat:        cat,
		lastFlavor: make(map[int64]int64, len(seed.LastFlavor)),
		variants:   make(map[prefs.VariantKey][]string, len(seed.Variants)),
	}
	for k, v := range seed.LastFlavor {
		m.lastFlavor[k] = v
	}
	for k, v := range seed.Variants {
		if len(v) > 0 {
			m.variants[k] = append([]string(nil), v...)
		}
	}

	start := cat.DefaultCategory()
	if seeded, ok := cat.Category(seed.Category); ok && seed.Category != 0 {
		start = seeded
	}
	if start != nil {
		m.applyCategory(start.ID)
	}
	return m
}

// CategoryID returns the current category id. It is 0 only for an empty catalog.
func (m *Machine) CategoryID() int64 { return m.categoryID }

// Flavor returns the current flavor id and name; ok is false when no flavor
// is selected.
func (m *Machine) Flavor() (id int64, name string, ok bool) {
	return m.flavorID, m.flavorName, m.hasFlavor
}

// Closed reports whether Close has been called.
func (m *Machine) Closed() bool { return m.closed }

// SelectCategory makes categoryID current and re-resolves the flavor:
// the one remembered for the category if still visible, else the first
// visible flavor in declaration order, else none. Unknown ids are ignored.
func (m *Machine) SelectCategory(categoryID int64) error {
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.cat.Category(categoryID); !ok {
		return nil
	}
	m.applyCategory(categoryID)
	return nil
}

func (m *Machine) applyCategory(categoryID int64) {
	m.categoryID = categoryID
	visible := m.cat.FlavorsApplicableTo(categoryID)

	if remembered, ok := m.lastFlavor[categoryID]; ok {
		for _, f := range visible {
			if f.ID == remembered {
				m.applyFlavor(f)
				return
			}
		}
	}
	if len(visible) > 0 {
		m.applyFlavor(visible[0])
		return
	}
	m.flavorID, m.flavorName, m.hasFlavor = 0, "", false
}

// SelectFlavor makes flavorID current and remembers it for the current
// category. Unknown flavors and flavors not visible under the current
// category are ignored.
func (m *Machine) SelectFlavor(flavorID int64) error {
	if m.closed {
		return ErrClosed
	}
	f, ok := m.cat.Flavor(flavorID)
	if !ok || !f.AppliesTo(m.categoryID) {
		return nil
	}
	m.applyFlavor(f)
	return nil
}

func (m *Machine) applyFlavor(f *catalog.Flavor) {
	m.flavorID, m.flavorName, m.hasFlavor = f.ID, f.Name, true
	m.lastFlavor[m.categoryID] = f.ID
}

// ToggleVariant flips variant in the scope of (component, effective flavor).
// Unknown components and ineligible variants are ignored.
func (m *Machine) ToggleVariant(componentName, variantName string) error {
	if m.closed {
		return ErrClosed
	}
	comp, ok := m.cat.ComponentByName(componentName)
	if !ok || !comp.SupportsVariant(variantName) {
		return nil
	}

	key := m.scope(comp)
	current := m.variants[key]
	for i, name := range current {
		if name == variantName {
			next := append(append([]string(nil), current[:i]...), current[i+1:]...)
			if len(next) == 0 {
				delete(m.variants, key)
			} else {
				m.variants[key] = next
			}
			return nil
		}
	}
	m.variants[key] = append(append([]string(nil), current...), variantName)
	return nil
}

// Close ends the machine's life and returns the preferences to persist.
// Calling it again returns the same encoding and ErrClosed.
func (m *Machine) Close() (prefs.Raw, error) {
	if m.closed {
		return prefs.Encode(m.Snapshot()), ErrClosed
	}
	m.closed = true
	return prefs.Encode(m.Snapshot()), nil
}

// Snapshot returns the persisted part of the state as a seed.
func (m *Machine) Snapshot() prefs.Seed {
	seed := prefs.NewSeed()
	seed.Category = m.categoryID
	for k, v := range m.lastFlavor {
		seed.LastFlavor[k] = v
	}
	for k, v := range m.variants {
		seed.Variants[k] = append([]string(nil), v...)
	}
	return seed
}

// scope returns the variant key for comp under the current flavor.
func (m *Machine) scope(comp *catalog.Component) prefs.VariantKey {
	return prefs.VariantKey{Component: comp.Name, Flavor: m.effectiveFlavor(comp)}
}

func (m *Machine) effectiveFlavor(comp *catalog.Component) string {
	if !comp.HasFlavors() || !m.hasFlavor {
		return ""
	}
	return m.flavorName
}
