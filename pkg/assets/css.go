package assets

import (
	"fmt"
	"strings"

	"github.com/gnana997/snipkit/pkg/store"
)

const (
	cssHeader = "/* This file contains the stylesheet for snipkit. */"
	jsHeader  = "/* This file contains the javascript for snipkit. */"

	// hiddenBodyClass is set on the editor body when the user is a student.
	hiddenBodyClass = "snipkit-h4s"
)

func variantIconCSS(variant, iconURL string) string {
	return fmt.Sprintf(".snipkit-button-variant[data-variant=\"%s\"] {\n    background-image: url('%s');\n}", variant, iconURL)
}

// buttonIconCSS styles a component button; flavor narrows it to the
// component under that flavor.
func buttonIconCSS(component, iconURL, flavor string) string {
	if flavor != "" {
		flavor = "." + flavor
	}
	return fmt.Sprintf(".snipkit-%s-icon%s .snipkit-button-text::before {\n    content: url('%s');\n}", component, flavor, iconURL)
}

func hideComponentCSS(name string) string {
	return fmt.Sprintf("body.%[1]s .snipkit-buttons-preview button[class^='snipkit-%[2]s-icon'],\n"+
		"body.%[1]s .snipkit-buttons-preview button[class*='snipkit-%[2]s-icon'] {\n    display: none;\n}",
		hiddenBodyClass, name)
}

func hideFlavorCSS(name string) string {
	return fmt.Sprintf("body.%[1]s .snipkit-buttons-flavors button[data-flavor='%[2]s'] {\n    display: none;\n}\n"+
		"body.%[1]s .snipkit-buttons-preview button[data-flavor='%[2]s'] {\n    display: none;\n}",
		hiddenBodyClass, name)
}

// buildCSS concatenates, in order: category, component, flavor and variant
// CSS, icon rules, then hide-for-students rules for components and flavors.
// extra is appended before the hide rules.
func buildCSS(ds *store.Dataset, extra []string) string {
	var entries []string
	for _, c := range ds.Categories {
		entries = append(entries, c.CSS)
	}
	for _, c := range ds.Components {
		entries = append(entries, c.CSS)
	}
	for _, f := range ds.Flavors {
		entries = append(entries, f.CSS)
	}
	for _, v := range ds.Variants {
		entries = append(entries, v.CSS)
	}

	for _, v := range ds.Variants {
		if v.IconURL != "" {
			entries = append(entries, variantIconCSS(v.Name, v.IconURL))
		}
	}
	for _, cf := range ds.ComponentFlavors {
		if cf.IconURL != "" {
			entries = append(entries, buttonIconCSS(cf.ComponentName, cf.IconURL, cf.FlavorName))
		}
	}
	for _, c := range ds.Components {
		if c.IconURL != "" {
			entries = append(entries, buttonIconCSS(c.Name, c.IconURL, ""))
		}
	}
	entries = append(entries, extra...)

	for _, c := range ds.Components {
		if c.HideForStudents {
			entries = append(entries, hideComponentCSS(c.Name))
		}
	}
	for _, f := range ds.Flavors {
		if f.HideForStudents {
			entries = append(entries, hideFlavorCSS(f.Name))
		}
	}
	return join(cssHeader, entries)
}

func join(header string, entries []string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, e := range entries {
		b.WriteByte('\n')
		b.WriteString(e)
	}
	return b.String()
}
