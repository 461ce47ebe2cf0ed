// Package render resolves component code templates into HTML.
//
// Tokens are substituted in a fixed order:
//
//	{{PLACEHOLDER}}  caller content (selection or preview text)
//	{{VARIANTS}}     active variant names, space separated
//	{{VARIANTSHTML}} active variant content fragments, activation order
//	{{FLAVOR}}       effective flavor name
//	{{COMPONENT}}    component name
//	{{CATEGORY}}     category name
//	{{@ID}}          a fresh id per occurrence
//	{{#key}}         localized string, left as-is when unknown
package render

import (
	"html"
	"strings"

	"github.com/gnana997/snipkit/pkg/catalog"
)

// Input is everything one render needs.
type Input struct {
	Component    *catalog.Component
	CategoryName string
	// Flavor is the effective flavor name; empty for flavor-less components.
	Flavor string
	// Variants are the active variants in activation order.
	Variants []*catalog.Variant
	// Placeholder replaces {{PLACEHOLDER}}. Preview and Insert fill it in.
	Placeholder string
}

// Insertion is the markup handed to the host editor, plus the id of the
// element the host should select afterwards.
type Insertion struct {
	HTML    string `json:"html"`
	FocusID string `json:"focus_id"`
}

// Resolver renders templates against a preloaded string table.
type Resolver struct {
	ids     IDGenerator
	strings StringTable
}

// NewResolver returns a Resolver. A nil ids uses a UUIDGenerator.
func NewResolver(ids IDGenerator, table StringTable) *Resolver {
	if ids == nil {
		ids = NewUUIDGenerator()
	}
	return &Resolver{ids: ids, strings: table}
}

// Render substitutes every token of in.Component.Code. It never fails; a nil
// component renders as the empty string.
func (r *Resolver) Render(in Input) string {
	if in.Component == nil {
		return ""
	}
	code := in.Component.Code

	code = strings.ReplaceAll(code, "{{PLACEHOLDER}}", in.Placeholder)
	code = strings.ReplaceAll(code, "{{VARIANTS}}", variantNames(in.Variants))
	code = strings.ReplaceAll(code, "{{VARIANTSHTML}}", variantHTML(in.Variants))

	flavor := in.Flavor
	if !in.Component.HasFlavors() {
		flavor = ""
	}
	code = strings.ReplaceAll(code, "{{FLAVOR}}", flavor)
	code = strings.ReplaceAll(code, "{{COMPONENT}}", in.Component.Name)
	code = strings.ReplaceAll(code, "{{CATEGORY}}", in.CategoryName)

	code = idPattern.ReplaceAllStringFunc(code, func(string) string {
		return r.ids.NewID()
	})
	return r.strings.apply(code)
}

// Preview renders the component with its preview text as placeholder.
func (r *Resolver) Preview(in Input) string {
	if in.Component != nil {
		in.Placeholder = in.Component.PreviewText
	}
	return r.Render(in)
}

// Insert renders the final markup. The selection, or the preview text when
// the selection is empty, is wrapped in a span carrying a fresh id so the
// host can select it after insertion.
func (r *Resolver) Insert(in Input, selection string) Insertion {
	content := selection
	if content == "" && in.Component != nil {
		content = in.Component.PreviewText
	}
	focus := r.ids.NewID()
	in.Placeholder = `<span data-id="` + html.EscapeString(focus) + `">` + content + `</span>`
	return Insertion{HTML: r.Render(in), FocusID: focus}
}

// Strings returns the resolver's string table.
func (r *Resolver) Strings() StringTable { return r.strings }

func variantNames(vs []*catalog.Variant) string {
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	return strings.Join(names, " ")
}

func variantHTML(vs []*catalog.Variant) string {
	var b strings.Builder
	for _, v := range vs {
		b.WriteString(v.Content)
	}
	return b.String()
}
