package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func card() *catalog.Component {
	return &catalog.Component{
		Name:        "card",
		Code:        "<div class='{{VARIANTS}} {{FLAVOR}}'>{{PLACEHOLDER}}</div>",
		PreviewText: "Preview",
		Flavors:     []string{"blue"},
		Variants:    []string{"bold"},
	}
}

func bold() *catalog.Variant {
	return &catalog.Variant{Name: "bold", Content: "<b></b>"}
}

// --- Render ---

func TestRender_VariantClassesAndFlavor(t *testing.T) {
	r := NewResolver(&SequenceGenerator{Prefix: "id"}, nil)
	out := r.Render(Input{
		Component:   card(),
		Flavor:      "blue",
		Variants:    []*catalog.Variant{bold()},
		Placeholder: "Hi",
	})
	assert.Equal(t, "<div class='bold blue'>Hi</div>", out)
}

func TestRender_FlavorlessComponentIgnoresFlavor(t *testing.T) {
	comp := &catalog.Component{Name: "tag", Code: "[{{FLAVOR}}]"}
	r := NewResolver(nil, nil)
	assert.Equal(t, "[]", r.Render(Input{Component: comp, Flavor: "blue"}))
}

func TestRender_AllTokens(t *testing.T) {
	comp := &catalog.Component{
		Name:    "note",
		Code:    `<div id="{{@ID}}" class="{{COMPONENT}} {{CATEGORY}} {{VARIANTS}}">{{VARIANTSHTML}}<p aria-labelledby="{{@ID}}">{{#title}}</p>{{PLACEHOLDER}}{{#missing}}</div>`,
		Flavors: []string{"blue"},
	}
	r := NewResolver(&SequenceGenerator{Prefix: "x"}, StringTable{"title": "Note"})
	out := r.Render(Input{
		Component:    comp,
		CategoryName: "contextual",
		Flavor:       "blue",
		Variants: []*catalog.Variant{
			{Name: "wide", Content: "<i>w</i>"},
			{Name: "quote", Content: "<q></q>"},
		},
		Placeholder: "body",
	})
	assert.Equal(t,
		`<div id="x1" class="note contextual wide quote"><i>w</i><q></q><p aria-labelledby="x2">Note</p>body{{#missing}}</div>`,
		out)
}

func TestRender_EmptyVariants(t *testing.T) {
	comp := &catalog.Component{Name: "c", Code: "<{{VARIANTS}}|{{VARIANTSHTML}}>"}
	r := NewResolver(nil, nil)
	assert.Equal(t, "<|>", r.Render(Input{Component: comp}))
}

func TestRender_PlaceholderIsSubstitutedFirst(t *testing.T) {
	comp := &catalog.Component{Name: "c", Code: "{{PLACEHOLDER}}"}
	r := NewResolver(nil, nil)
	out := r.Render(Input{Component: comp, Placeholder: "{{COMPONENT}}"})
	assert.Equal(t, "c", out, "later tokens in caller content are resolved too")
}

func TestRender_NilComponent(t *testing.T) {
	r := NewResolver(nil, nil)
	assert.Equal(t, "", r.Render(Input{}))
}

// --- Preview / Insert ---

func TestPreview_UsesPreviewText(t *testing.T) {
	r := NewResolver(nil, nil)
	out := r.Preview(Input{Component: card(), Flavor: "blue", Placeholder: "ignored"})
	assert.Equal(t, "<div class=' blue'>Preview</div>", out)
}

func TestInsert_WrapsSelection(t *testing.T) {
	r := NewResolver(&SequenceGenerator{Prefix: "f"}, nil)
	ins := r.Insert(Input{Component: card(), Flavor: "blue", Variants: []*catalog.Variant{bold()}}, "Selected <em>text</em>")
	assert.Equal(t, "f1", ins.FocusID)
	assert.Equal(t, `<div class='bold blue'><span data-id="f1">Selected <em>text</em></span></div>`, ins.HTML)
}

func TestInsert_FallsBackToPreviewText(t *testing.T) {
	r := NewResolver(&SequenceGenerator{Prefix: "f"}, nil)
	ins := r.Insert(Input{Component: card()}, "")
	assert.Contains(t, ins.HTML, `<span data-id="f1">Preview</span>`)
}

// --- strings ---

func TestScanKeys(t *testing.T) {
	keys := ScanKeys([]string{
		"{{#title}} {{#body}}",
		"{{#title}}{{#}}",
		"no keys {{PLACEHOLDER}}",
		"{{#footer}}",
	})
	assert.Equal(t, []string{"title", "body", "", "footer"}, keys)
	assert.Empty(t, ScanKeys(nil))
}

func TestStringTable_MissingKeysLeftAsIs(t *testing.T) {
	table := StringTable{"a": "A"}
	assert.Equal(t, "A {{#b}} A", table.apply("{{#a}} {{#b}} {{#a}}"))
	assert.Equal(t, "{{#a}}", StringTable(nil).apply("{{#a}}"))
}

// --- ids ---

func TestUUIDGenerator_Unique(t *testing.T) {
	g := NewUUIDGenerator()
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := g.NewID()
		require.True(t, strings.HasPrefix(id, IDPrefix))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRender_IDsDistinctAcrossRenders(t *testing.T) {
	comp := &catalog.Component{Name: "c", Code: "{{@ID}} {{@ID}}"}
	r := NewResolver(nil, nil)
	seen := make(map[string]bool, 20000)
	for i := 0; i < 10000; i++ {
		for _, id := range strings.Fields(r.Render(Input{Component: comp})) {
			require.False(t, seen[id])
			seen[id] = true
		}
	}
	assert.Len(t, seen, 20000)
}

func TestFormatSeq(t *testing.T) {
	assert.Equal(t, "0", formatSeq(0))
	assert.Equal(t, "z", formatSeq(35))
	assert.Equal(t, "10", formatSeq(36))
}

// --- properties ---

var unresolved = regexp.MustCompile(`\{\{[^#}][^}]*\}\}`)

func TestRenderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	tokens := []string{"{{PLACEHOLDER}}", "{{VARIANTS}}", "{{VARIANTSHTML}}", "{{FLAVOR}}",
		"{{COMPONENT}}", "{{CATEGORY}}", "{{@ID}}", "{{#known}}", "{{#unknown}}"}

	properties.Property("only unknown string keys survive", prop.ForAll(
		func(picks []int, text string, withFlavor bool) bool {
			var code strings.Builder
			for _, p := range picks {
				code.WriteString(tokens[p])
				code.WriteString(text)
			}
			comp := &catalog.Component{Name: "c", Code: code.String()}
			if withFlavor {
				comp.Flavors = []string{"blue"}
			}
			r := NewResolver(nil, StringTable{"known": "K"})
			out := r.Render(Input{
				Component:    comp,
				CategoryName: "cat",
				Flavor:       "blue",
				Variants:     []*catalog.Variant{{Name: "v", Content: "<i></i>"}},
				Placeholder:  text,
			})
			return !unresolved.MatchString(out) && !strings.Contains(out, "{{#known}}")
		},
		gen.SliceOf(gen.IntRange(0, len(tokens)-1)),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
