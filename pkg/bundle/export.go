package bundle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gnana997/snipkit/pkg/assets"
	"github.com/gnana997/snipkit/pkg/store"
	"github.com/gnana997/snipkit/pkg/util"
)

// Source supplies the catalog to export. *store.Store satisfies it.
type Source interface {
	Dataset(ctx context.Context) (*store.Dataset, error)
}

// Report counts what an export or import touched.
type Report struct {
	Categories       int `json:"categories"`
	Components       int `json:"components"`
	Flavors          int `json:"flavors"`
	Variants         int `json:"variants"`
	ComponentFlavors int `json:"component_flavors"`
	Files            int `json:"files"`
	// Skipped lists rows or files that could not be placed.
	Skipped []string `json:"skipped,omitempty"`
	// CategoryIDs maps archive category ids to stored ones. Import only.
	CategoryIDs map[int64]int64 `json:"category_ids,omitempty"`
}

// Exporter writes archives.
type Exporter struct {
	src      Source
	assetDir string
	files    util.FileCache
	logger   *slog.Logger
}

// NewExporter creates an Exporter. Images are read from
// assetDir/images/<category id>/ through files; nil files uses a private
// unbounded cache.
func NewExporter(src Source, assetDir string, files util.FileCache, logger *slog.Logger) *Exporter {
	if files == nil {
		files = util.NewFileCache(util.UnboundedFileCacheConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{src: src, assetDir: assetDir, files: files, logger: logger}
}

// Export writes an archive of the whole catalog to w.
func (e *Exporter) Export(ctx context.Context, w io.Writer) (*Report, error) {
	ds, err := e.src.Dataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	data, err := encodeManifest(newManifest(ds))
	if err != nil {
		return nil, err
	}

	report := &Report{
		Categories:       len(ds.Categories),
		Components:       len(ds.Components),
		Flavors:          len(ds.Flavors),
		Variants:         len(ds.Variants),
		ComponentFlavors: len(ds.ComponentFlavors),
	}

	zw := zip.NewWriter(w)
	if err := writeEntry(zw, ManifestName, data); err != nil {
		zw.Close()
		return nil, err
	}

	for _, c := range ds.Categories {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return nil, err
		}
		dir := e.imageDir(c.ID)
		rels, err := assets.Discover(dir, nil, nil)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to list images of %s: %w", c.Name, err)
		}
		for _, rel := range rels {
			content, err := e.files.Bytes(filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				zw.Close()
				return nil, fmt.Errorf("failed to read image %s/%s: %w", c.Name, rel, err)
			}
			if err := writeEntry(zw, c.Name+"/"+rel, content); err != nil {
				zw.Close()
				return nil, err
			}
			report.Files++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	e.logger.Info("exported catalog",
		"categories", report.Categories,
		"components", report.Components,
		"files", report.Files)
	return report, nil
}

// ExportFile writes the archive to path, replacing it only on success.
func (e *Exporter) ExportFile(ctx context.Context, path string) (*Report, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snipkit-export-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	report, err := e.Export(ctx, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write export file: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to move export file into place: %w", err)
	}
	return report, nil
}

func (e *Exporter) imageDir(categoryID int64) string {
	return imageDir(e.assetDir, categoryID)
}

func imageDir(assetDir string, categoryID int64) string {
	return filepath.Join(assetDir, "images", strconv.FormatInt(categoryID, 10))
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
