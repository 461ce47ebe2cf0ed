package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gnana997/snipkit/catalogs"
	"github.com/gnana997/snipkit/pkg/assets"
	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/i18n"
	"github.com/gnana997/snipkit/pkg/prefs"
	"github.com/gnana997/snipkit/pkg/store"
	"github.com/gnana997/snipkit/pkg/util"
)

var errNoDatabase = errors.New("this command needs a database: set db_path in the config or pass --db")

// backend is where a command reads the catalog and keeps preferences.
type backend struct {
	catalog catalog.Source
	prefs   prefs.Store
	// store is nil when the catalog comes from a file.
	store *store.Store
	// file is nil when the catalog comes from the store.
	file *catalog.FileSource
}

// openBackend prefers the database. Without one, the catalog is read from
// catalog_path or the embedded base catalog, and preferences only last for
// the process.
func (a *app) openBackend(ctx context.Context) (*backend, error) {
	if a.cfg.DBPath != "" {
		st, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		return &backend{catalog: st, prefs: st, store: st}, nil
	}

	var (
		src *catalog.FileSource
		err error
	)
	if a.cfg.CatalogPath != "" {
		src, err = catalog.NewFileSource(a.cfg.CatalogPath)
	} else {
		src, err = catalog.NewBytesSource(catalogs.BaseJSON)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a.logger.Debug("catalog loaded from file", "path", src.Path())
	return &backend{catalog: src, prefs: prefs.NewMemoryStore(), file: src}, nil
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.cfg.DBPath == "" {
		return nil, errNoDatabase
	}
	st, err := store.OpenAndMigrate(ctx, a.cfg.DBPath,
		store.WithAssetBaseURL(a.cfg.AssetBaseURL),
		store.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.onClose(st.Close)
	return st, nil
}

// loadStrings merges lang_dir tables over the embedded ones.
func (a *app) loadStrings() (*i18n.Bundle, error) {
	strings, err := i18n.LoadFS(catalogs.BaseLang())
	if err != nil {
		return nil, fmt.Errorf("failed to load base strings: %w", err)
	}
	if a.cfg.LangDir != "" {
		extra, err := i18n.LoadDir(a.cfg.LangDir)
		if err != nil {
			return nil, err
		}
		strings.Merge(extra)
	}
	return strings, nil
}

func (a *app) fileCache() util.FileCache {
	cfg := util.DefaultFileCacheConfig()
	cfg.Logger = a.logger
	fc := util.NewFileCache(cfg)
	a.onClose(fc.Close)
	return fc
}

// stylesDir holds extra stylesheets appended to the CSS bundle.
func (a *app) stylesDir() string {
	if a.cfg.AssetDir == "" {
		return ""
	}
	return filepath.Join(a.cfg.AssetDir, "styles")
}

func (a *app) assetPipeline(st *store.Store, checker assets.ScriptChecker) (*assets.Pipeline, error) {
	return assets.NewPipeline(st, assets.Options{
		BaseURL:  a.cfg.AssetBaseURL,
		ExtraDir: a.stylesDir(),
		Files:    a.fileCache(),
		Checker:  checker,
		Logger:   a.logger,
	})
}
