// Package prefs converts between the three persisted preference slots and the
// in-memory selection seed.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Preference slot names.
const (
	SlotCategory          = "snipkit_category"
	SlotCategoryFlavors   = "snipkit_category_flavors"
	SlotComponentVariants = "snipkit_component_variants"
)

// ErrMalformedPreference marks a slot that could not be decoded. Decode still
// returns a usable Seed alongside it.
var ErrMalformedPreference = errors.New("malformed preference")

// keySeparator joins component and flavor in persisted variant keys.
// catalog.ValidateComponentName keeps it out of component names.
const keySeparator = "@"

// Raw holds the three opaque persisted values.
type Raw struct {
	Category          int64  `json:"category"`
	CategoryFlavors   string `json:"category_flavors"`
	ComponentVariants string `json:"component_variants"`
}

// VariantKey scopes a variant selection to a component and, when the
// component supports flavors, to a flavor.
type VariantKey struct {
	Component string
	Flavor    string
}

func (k VariantKey) encode() string {
	if k.Flavor == "" {
		return k.Component
	}
	return k.Component + keySeparator + k.Flavor
}

func decodeKey(s string) VariantKey {
	comp, flavor, _ := strings.Cut(s, keySeparator)
	return VariantKey{Component: comp, Flavor: flavor}
}

// Seed is the decoded selection state.
type Seed struct {
	// Category is the last category id; 0 means none.
	Category int64
	// LastFlavor maps category id to the last flavor id used there.
	LastFlavor map[int64]int64
	// Variants maps a scope to the active variant names in activation order.
	Variants map[VariantKey][]string
}

// NewSeed returns an empty seed.
func NewSeed() Seed {
	return Seed{
		LastFlavor: make(map[int64]int64),
		Variants:   make(map[VariantKey][]string),
	}
}

// Decode converts raw slots into a Seed. Each malformed slot falls back to
// its empty default; the returned error joins one ErrMalformedPreference per
// bad slot and is informational only.
func Decode(raw Raw) (Seed, error) {
	seed := NewSeed()
	seed.Category = raw.Category

	var errs []error
	if flavors, err := decodeCategoryFlavors(raw.CategoryFlavors); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrMalformedPreference, SlotCategoryFlavors, err))
	} else {
		seed.LastFlavor = flavors
	}
	if variants, err := decodeComponentVariants(raw.ComponentVariants); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrMalformedPreference, SlotComponentVariants, err))
	} else {
		seed.Variants = variants
	}
	return seed, errors.Join(errs...)
}

// Encode converts a Seed into raw slots. Output is deterministic.
func Encode(seed Seed) Raw {
	flavors := make(map[string]int64, len(seed.LastFlavor))
	for cat, flavor := range seed.LastFlavor {
		flavors[strconv.FormatInt(cat, 10)] = flavor
	}
	variants := make(map[string][]string, len(seed.Variants))
	for key, names := range seed.Variants {
		if len(names) == 0 {
			continue
		}
		variants[key.encode()] = append([]string(nil), names...)
	}

	// encoding/json sorts map keys, so both strings are stable.
	fb, _ := json.Marshal(flavors)
	vb, _ := json.Marshal(variants)
	return Raw{
		Category:          seed.Category,
		CategoryFlavors:   string(fb),
		ComponentVariants: string(vb),
	}
}

// decodeCategoryFlavors accepts an object keyed by category id, or the
// legacy array form indexed by category id. Ids may be numbers or numeric
// strings; nulls and zero ids are skipped.
func decodeCategoryFlavors(s string) (map[int64]int64, error) {
	out := make(map[int64]int64)
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return out, nil
	}

	switch s[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil, err
		}
		for k, v := range obj {
			cat, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("category key %q: %w", k, err)
			}
			flavor, ok, err := parseID(v)
			if err != nil {
				return nil, fmt.Errorf("category %d: %w", cat, err)
			}
			if ok {
				out[cat] = flavor
			}
		}
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil, err
		}
		for i, v := range arr {
			flavor, ok, err := parseID(v)
			if err != nil {
				return nil, fmt.Errorf("category %d: %w", i, err)
			}
			if ok {
				out[int64(i)] = flavor
			}
		}
	default:
		return nil, fmt.Errorf("unexpected JSON value")
	}
	return out, nil
}

// parseID reads a positive id encoded as a number or a numeric string.
// ok is false for null, empty, or zero.
func parseID(raw json.RawMessage) (id int64, ok bool, err error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, err
	}
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		id = int64(t)
		if float64(id) != t {
			return 0, false, fmt.Errorf("non-integer id %v", t)
		}
	case string:
		if t == "" {
			return 0, false, nil
		}
		id, err = strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false, err
		}
	default:
		return 0, false, fmt.Errorf("unexpected id type %T", v)
	}
	return id, id > 0, nil
}

func decodeComponentVariants(s string) (map[VariantKey][]string, error) {
	out := make(map[VariantKey][]string)
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return out, nil
	}
	var obj map[string][]string
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	for k, names := range obj {
		key := decodeKey(k)
		if key.Component == "" {
			continue
		}
		clean := dedupe(names)
		if len(clean) > 0 {
			out[key] = clean
		}
	}
	return out, nil
}

func dedupe(names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SortedKeys returns the variant scopes of a seed in a stable order.
func (s Seed) SortedKeys() []VariantKey {
	keys := make([]VariantKey, 0, len(s.Variants))
	for k := range s.Variants {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Component != keys[j].Component {
			return keys[i].Component < keys[j].Component
		}
		return keys[i].Flavor < keys[j].Flavor
	})
	return keys
}
