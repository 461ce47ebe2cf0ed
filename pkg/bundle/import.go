package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/store"
)

// maxEntrySize bounds a single archive entry.
const maxEntrySize = 64 << 20

// Target receives imported rows. *store.Store satisfies it.
type Target interface {
	SaveCategory(ctx context.Context, c store.Category) (int64, error)
	UpdateCategoryCSS(ctx context.Context, id int64, css string) error
	SaveComponent(ctx context.Context, c store.Component) (int64, error)
	SaveFlavor(ctx context.Context, f store.Flavor) (int64, error)
	SaveVariant(ctx context.Context, v store.Variant) (int64, error)
	SaveComponentFlavor(ctx context.Context, cf store.ComponentFlavor) (int64, error)
}

// Purger drops cached asset bundles. *assets.Pipeline satisfies it.
type Purger interface {
	Purge()
}

// Importer reads archives into a Target.
type Importer struct {
	dst      Target
	assetDir string
	purger   Purger
	logger   *slog.Logger
}

// NewImporter creates an Importer writing images below assetDir. purger
// may be nil.
func NewImporter(dst Target, assetDir string, purger Purger, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{dst: dst, assetDir: assetDir, purger: purger, logger: logger}
}

// ImportFile imports the archive at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()
	return im.importZip(ctx, &zr.Reader)
}

// Import imports an archive held in r.
func (im *Importer) Import(ctx context.Context, r io.ReaderAt, size int64) (*Report, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return im.importZip(ctx, zr)
}

// importZip upserts rows by name. Categories go first so components can be
// moved to their new category ids, and every stored text field has its
// image paths rewritten to the new ids. Rows are saved one by one; a
// failure midway leaves earlier rows in place.
func (im *Importer) importZip(ctx context.Context, zr *zip.Reader) (*Report, error) {
	var manifestFile *zip.File
	for _, f := range zr.File {
		if f.Name == ManifestName {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		return nil, ErrNoManifest
	}
	data, err := readEntry(manifestFile)
	if err != nil {
		return nil, err
	}
	m, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}

	report := &Report{CategoryIDs: make(map[int64]int64, len(m.Categories.Rows))}
	categoryByName := make(map[string]int64, len(m.Categories.Rows))
	for _, row := range m.Categories.Rows {
		id, err := im.dst.SaveCategory(ctx, store.Category{
			Name: row.Name, DisplayName: row.DisplayName, DisplayOrder: row.DisplayOrder, CSS: row.CSS,
		})
		if err != nil {
			return nil, err
		}
		report.CategoryIDs[row.ID] = id
		categoryByName[row.Name] = id
		report.Categories++
	}

	remap := catalog.NewImagePathRemapper(report.CategoryIDs).Remap
	for _, row := range m.Categories.Rows {
		if css := remap(row.CSS); css != row.CSS {
			if err := im.dst.UpdateCategoryCSS(ctx, report.CategoryIDs[row.ID], css); err != nil {
				return nil, err
			}
		}
	}

	for _, row := range m.Components.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := catalog.ValidateComponentName(row.Name); err != nil {
			im.logger.Warn("skipping component with invalid name", "component", row.Name, "error", err)
			report.Skipped = append(report.Skipped, "component "+row.Name)
			continue
		}
		categoryID, ok := report.CategoryIDs[row.CategoryID]
		if !ok {
			im.logger.Warn("skipping component with unknown category", "component", row.Name, "category", row.CategoryID)
			report.Skipped = append(report.Skipped, "component "+row.Name)
			continue
		}
		_, err := im.dst.SaveComponent(ctx, store.Component{
			Name: row.Name, DisplayName: row.DisplayName, CategoryID: categoryID,
			ImageClass: row.ImageClass, Code: remap(row.Code), Text: row.Text,
			Variants: splitList(row.Variants), Flavors: splitList(row.Flavors),
			DisplayOrder: row.DisplayOrder, CSS: remap(row.CSS), JS: remap(row.JS),
			IconURL: remap(row.IconURL), HideForStudents: row.HideForStudents != 0,
		})
		if err != nil {
			return nil, err
		}
		report.Components++
	}

	for _, row := range m.Flavors.Rows {
		_, err := im.dst.SaveFlavor(ctx, store.Flavor{
			Name: row.Name, DisplayName: row.DisplayName, Content: remap(row.Content),
			CSS: remap(row.CSS), Variants: splitList(row.Variants), HideForStudents: row.HideForStudents != 0,
		})
		if err != nil {
			return nil, err
		}
		report.Flavors++
	}

	for _, row := range m.Variants.Rows {
		_, err := im.dst.SaveVariant(ctx, store.Variant{
			Name: row.Name, DisplayName: row.DisplayName, Content: remap(row.Content),
			CSS: remap(row.CSS), IconURL: remap(row.IconURL),
		})
		if err != nil {
			return nil, err
		}
		report.Variants++
	}

	for _, row := range m.ComponentFlavors.Rows {
		_, err := im.dst.SaveComponentFlavor(ctx, store.ComponentFlavor{
			ComponentName: row.ComponentName, FlavorName: row.FlavorName, IconURL: remap(row.IconURL),
		})
		if err != nil {
			return nil, err
		}
		report.ComponentFlavors++
	}

	for _, f := range zr.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		placed, err := im.extractImage(f, categoryByName)
		if err != nil {
			return nil, err
		}
		if !placed {
			report.Skipped = append(report.Skipped, "file "+f.Name)
			continue
		}
		report.Files++
	}

	if im.purger != nil {
		im.purger.Purge()
	}
	im.logger.Info("imported catalog",
		"categories", report.Categories,
		"components", report.Components,
		"flavors", report.Flavors,
		"variants", report.Variants,
		"files", report.Files,
		"skipped", len(report.Skipped))
	return report, nil
}

// extractImage writes <category name>/<rel> to images/<new id>/<rel>.
// Entries outside a known category are skipped.
func (im *Importer) extractImage(f *zip.File, categoryByName map[string]int64) (bool, error) {
	categoryName, rel, ok := strings.Cut(f.Name, "/")
	if !ok || rel == "" {
		return false, nil
	}
	id, known := categoryByName[categoryName]
	if !known {
		im.logger.Warn("skipping file outside known categories", "file", f.Name)
		return false, nil
	}
	clean := path.Clean(rel)
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "\\") {
		return false, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
	}

	data, err := readEntry(f)
	if err != nil {
		return false, err
	}
	dest := filepath.Join(imageDir(im.assetDir, id), filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return false, fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o640); err != nil {
		return false, fmt.Errorf("failed to write image %s: %w", f.Name, err)
	}
	return true, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	if n > maxEntrySize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return buf.Bytes(), nil
}
