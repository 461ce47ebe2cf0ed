package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/render"
)

type renderOptions struct {
	flavor    string
	variants  []string
	selection string
	preview   bool
	student   bool
}

func renderCmd(a *app) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render COMPONENT",
		Short: "Render a component's markup without opening a dialogue",
		Long: `Render one component as it would be inserted. Without --flavor the
component's first flavor is used; variants must be eligible for the
component under that flavor.`,
		Args: cobra.ExactArgs(1),
	}
	f := cmd.Flags()
	f.StringVar(&opts.flavor, "flavor", "", "flavor name")
	f.StringSliceVar(&opts.variants, "variant", nil, "variant to activate, repeatable, in activation order")
	f.StringVar(&opts.selection, "selection", "", "content placed inside the component")
	f.BoolVar(&opts.preview, "preview", false, "render the preview instead of the inserted markup")
	f.BoolVar(&opts.student, "student", false, "load the catalog as a student sees it")

	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		html, err := a.render(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
		return err
	})
	return cmd
}

func (a *app) render(ctx context.Context, name string, opts renderOptions) (string, error) {
	be, err := a.openBackend(ctx)
	if err != nil {
		return "", err
	}
	cat, err := catalog.Load(ctx, be.catalog, catalog.FetchRequest{StudentOnly: opts.student}, a.logger)
	if err != nil {
		return "", err
	}
	comp, ok := cat.ComponentByName(name)
	if !ok {
		return "", fmt.Errorf("unknown component %q", name)
	}
	in, err := renderInput(cat, comp, opts)
	if err != nil {
		return "", err
	}

	table, err := a.stringTable(ctx, comp)
	if err != nil {
		return "", err
	}
	r := render.NewResolver(nil, table)
	if opts.preview {
		return r.Preview(in), nil
	}
	return r.Insert(in, opts.selection).HTML, nil
}

// renderInput resolves flavor and variant names against the catalog.
func renderInput(cat *catalog.Catalog, comp *catalog.Component, opts renderOptions) (render.Input, error) {
	in := render.Input{Component: comp}
	if c, ok := cat.Category(comp.CategoryID); ok {
		in.CategoryName = c.Name
	}

	flavor := opts.flavor
	switch {
	case flavor == "" && comp.HasFlavors():
		flavor = comp.Flavors[0]
	case flavor != "":
		if _, ok := cat.FlavorByName(flavor); !ok {
			return in, fmt.Errorf("unknown flavor %q", flavor)
		}
		if !comp.SupportsFlavor(flavor) {
			return in, fmt.Errorf("component %q does not support flavor %q", comp.Name, flavor)
		}
	}
	in.Flavor = flavor

	eligible := cat.VariantsEligibleFor(comp.Name, flavor)
	for _, name := range opts.variants {
		v := findVariant(eligible, name)
		if v == nil {
			return in, fmt.Errorf("variant %q is not available for %s/%s", name, comp.Name, flavor)
		}
		in.Variants = append(in.Variants, v)
	}
	return in, nil
}

func findVariant(vs []*catalog.Variant, name string) *catalog.Variant {
	for _, v := range vs {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// stringTable resolves the component's {{#key}} tokens and its variant
// names in the configured locale.
func (a *app) stringTable(ctx context.Context, comp *catalog.Component) (render.StringTable, error) {
	strings, err := a.loadStrings()
	if err != nil {
		return nil, err
	}
	keys := append(render.ScanKeys([]string{comp.Code}), comp.Variants...)
	values, err := strings.Localizer(a.cfg.locale()).LookupStrings(ctx, keys)
	if err != nil {
		return nil, err
	}
	table := make(render.StringTable, len(keys))
	for i, v := range values {
		if v.Found {
			table[keys[i]] = v.Text
		}
	}
	return table, nil
}
