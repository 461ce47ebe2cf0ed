package watch

import (
	"log/slog"

	"github.com/gnana997/snipkit/pkg/catalog"
)

// Reloader re-reads a file-backed source. *catalog.FileSource satisfies it.
type Reloader interface {
	Reload() error
}

// FileInvalidator drops a changed file and its derived bundles.
// *assets.Pipeline satisfies it.
type FileInvalidator interface {
	InvalidateFile(path string)
}

// ReloadCatalog reloads src when the catalog file changes. A removed or
// unparsable file keeps the last good catalog. onReload, if set, runs
// after each successful reload.
func ReloadCatalog(src Reloader, onReload func(), logger *slog.Logger) Action {
	if logger == nil {
		logger = slog.Default()
	}
	return func(path string, removed bool) {
		if removed {
			logger.Warn("catalog file removed, keeping last catalog", "path", path)
			return
		}
		if err := src.Reload(); err != nil {
			logger.Warn("catalog reload failed, keeping last catalog", "path", path, "error", err)
			return
		}
		logger.Info("catalog reloaded", "path", path)
		if onReload != nil {
			onReload()
		}
	}
}

// InvalidateAssets drops changed asset files from inv.
func InvalidateAssets(inv FileInvalidator, logger *slog.Logger) Action {
	if logger == nil {
		logger = slog.Default()
	}
	return func(path string, removed bool) {
		inv.InvalidateFile(path)
		logger.Debug("asset changed", "path", path, "removed", removed)
	}
}

var _ Reloader = (*catalog.FileSource)(nil)
