// Package bundle exports the stored catalog and its images to a zip archive
// and imports such archives back, renumbering categories as needed.
//
// An archive holds snipkit_export.xml plus each category's images under a
// directory named after the category:
//
//	snipkit_export.xml
//	contextual/keyconcept.svg
//	contextual/icons/tip.png
//
// The manifest has one element per table, each holding <row> elements.
// Stored text keeps its @@ASSETS@@ tokens, so archives are portable across
// asset base URLs.
package bundle

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/gnana997/snipkit/pkg/store"
)

const (
	// ManifestName is the manifest's entry name inside the archive.
	ManifestName = "snipkit_export.xml"
	// FormatVersion is the newest manifest version this build reads.
	FormatVersion = 1
)

var (
	ErrNoManifest         = errors.New("archive has no " + ManifestName)
	ErrMissingTable       = errors.New("manifest is missing a table")
	ErrUnsupportedVersion = errors.New("unsupported manifest version")
	ErrUnsafePath         = errors.New("unsafe path in archive")
)

type manifest struct {
	XMLName          xml.Name         `xml:"snipkit"`
	Version          int              `xml:"version,attr"`
	Categories       *categoryTable   `xml:"compcat"`
	Components       *componentTable  `xml:"component"`
	Flavors          *flavorTable     `xml:"flavor"`
	Variants         *variantTable    `xml:"variant"`
	ComponentFlavors *compFlavorTable `xml:"comp_flavor"`
}

type categoryTable struct {
	Rows []categoryRow `xml:"row"`
}

type categoryRow struct {
	ID           int64  `xml:"id"`
	Name         string `xml:"name"`
	DisplayName  string `xml:"displayname"`
	DisplayOrder int    `xml:"displayorder"`
	CSS          string `xml:"css"`
}

type componentTable struct {
	Rows []componentRow `xml:"row"`
}

type componentRow struct {
	ID              int64  `xml:"id"`
	Name            string `xml:"name"`
	DisplayName     string `xml:"displayname"`
	CategoryID      int64  `xml:"compcat"`
	ImageClass      string `xml:"imageclass"`
	Code            string `xml:"code"`
	Text            string `xml:"text"`
	Variants        string `xml:"variants"`
	Flavors         string `xml:"flavors"`
	DisplayOrder    int    `xml:"displayorder"`
	CSS             string `xml:"css"`
	JS              string `xml:"js"`
	IconURL         string `xml:"iconurl"`
	HideForStudents int    `xml:"hideforstudents"`
}

type flavorTable struct {
	Rows []flavorRow `xml:"row"`
}

type flavorRow struct {
	ID              int64  `xml:"id"`
	Name            string `xml:"name"`
	DisplayName     string `xml:"displayname"`
	Content         string `xml:"content"`
	CSS             string `xml:"css"`
	Variants        string `xml:"variants"`
	HideForStudents int    `xml:"hideforstudents"`
}

type variantTable struct {
	Rows []variantRow `xml:"row"`
}

type variantRow struct {
	ID          int64  `xml:"id"`
	Name        string `xml:"name"`
	DisplayName string `xml:"displayname"`
	Content     string `xml:"content"`
	CSS         string `xml:"css"`
	IconURL     string `xml:"iconurl"`
}

type compFlavorTable struct {
	Rows []compFlavorRow `xml:"row"`
}

type compFlavorRow struct {
	ID            int64  `xml:"id"`
	ComponentName string `xml:"componentname"`
	FlavorName    string `xml:"flavorname"`
	IconURL       string `xml:"iconurl"`
}

func newManifest(ds *store.Dataset) *manifest {
	m := &manifest{
		Version:          FormatVersion,
		Categories:       &categoryTable{},
		Components:       &componentTable{},
		Flavors:          &flavorTable{},
		Variants:         &variantTable{},
		ComponentFlavors: &compFlavorTable{},
	}
	for _, c := range ds.Categories {
		m.Categories.Rows = append(m.Categories.Rows, categoryRow(c))
	}
	for _, c := range ds.Components {
		m.Components.Rows = append(m.Components.Rows, componentRow{
			ID: c.ID, Name: c.Name, DisplayName: c.DisplayName, CategoryID: c.CategoryID,
			ImageClass: c.ImageClass, Code: c.Code, Text: c.Text,
			Variants: strings.Join(c.Variants, ","), Flavors: strings.Join(c.Flavors, ","),
			DisplayOrder: c.DisplayOrder, CSS: c.CSS, JS: c.JS, IconURL: c.IconURL,
			HideForStudents: flag(c.HideForStudents),
		})
	}
	for _, f := range ds.Flavors {
		m.Flavors.Rows = append(m.Flavors.Rows, flavorRow{
			ID: f.ID, Name: f.Name, DisplayName: f.DisplayName, Content: f.Content, CSS: f.CSS,
			Variants: strings.Join(f.Variants, ","), HideForStudents: flag(f.HideForStudents),
		})
	}
	for _, v := range ds.Variants {
		m.Variants.Rows = append(m.Variants.Rows, variantRow(v))
	}
	for _, cf := range ds.ComponentFlavors {
		m.ComponentFlavors.Rows = append(m.ComponentFlavors.Rows, compFlavorRow(cf))
	}
	return m
}

func encodeManifest(m *manifest) ([]byte, error) {
	out, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func decodeManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	tables := []struct {
		name    string
		present bool
	}{
		{"compcat", m.Categories != nil},
		{"component", m.Components != nil},
		{"flavor", m.Flavors != nil},
		{"variant", m.Variants != nil},
		{"comp_flavor", m.ComponentFlavors != nil},
	}
	for _, t := range tables {
		if !t.present {
			return nil, fmt.Errorf("%w: %s", ErrMissingTable, t.name)
		}
	}
	return &m, nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
