// FileCache serves asset files (images, extra stylesheets, scripts) from
// memory-mapped regions.
//
// Files are mapped lazily on first access and stay mapped until they are
// invalidated, the cache is closed, or a limit is hit. When mmap fails the
// file is read into memory instead. Empty files are never mapped.
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
)

// FileCache gives concurrent read access to asset files.
type FileCache interface {
	// Get returns the mapped file, loading it on first access. It fails when
	// the file is missing or a limit would be exceeded.
	Get(filePath string) (*MappedFile, error)

	// Bytes returns a copy of the file's contents, safe to keep after the
	// file is invalidated.
	Bytes(filePath string) ([]byte, error)

	// Invalidate unmaps a file so the next Get reloads it from disk.
	// Unknown paths are ignored.
	Invalidate(filePath string)

	// Size returns the number of cached files.
	Size() int

	// Stats returns current cache metrics.
	Stats() FileCacheStats

	// Close unmaps every file.
	Close() error
}

// FileCacheConfig controls FileCache limits.
type FileCacheConfig struct {
	// MaxFiles caps the number of cached files; 0 is unlimited.
	MaxFiles int
	// MaxMemoryMB caps mapped virtual memory; 0 is unlimited.
	MaxMemoryMB int
	// EnableMetrics turns on hit/miss counting.
	EnableMetrics bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig suits an asset directory of a few thousand images.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles:      4096,
		MaxMemoryMB:   512,
		EnableMetrics: true,
	}
}

// UnboundedFileCacheConfig has no limits. Meant for tests and one-shot
// exports.
func UnboundedFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{EnableMetrics: true}
}

// MappedFile is one cached file.
type MappedFile struct {
	Path string
	// Data is the mapped region, or the fallback bytes. Nil for empty files.
	Data mmap.MMap
	// File is nil for fallback entries.
	File     *os.File
	Size     int64
	MappedAt time.Time
}

// FileCacheStats tracks cache metrics.
type FileCacheStats struct {
	FilesLoaded   int64
	FilesCached   int
	CacheHits     int64
	CacheMisses   int64
	MmapFailures  int64
	Invalidations int64
	TotalMappedMB float64
}

// NewFileCache creates a FileCache. A nil config uses the defaults.
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &fileCache{
		config:   config,
		logger:   logger,
		mapped:   make(map[string]*MappedFile),
		fallback: make(map[string][]byte),
	}
}

type fileCache struct {
	config *FileCacheConfig
	logger *slog.Logger

	// mu guards mapped and fallback.
	mu       sync.RWMutex
	mapped   map[string]*MappedFile
	fallback map[string][]byte

	statsMu sync.Mutex
	stats   FileCacheStats
}

func (fc *fileCache) lookupLocked(filePath string) (*MappedFile, bool) {
	if mf, ok := fc.mapped[filePath]; ok {
		return mf, true
	}
	if data, ok := fc.fallback[filePath]; ok {
		return wrapFallback(filePath, data), true
	}
	return nil, false
}

func (fc *fileCache) Get(filePath string) (*MappedFile, error) {
	fc.mu.RLock()
	mf, ok := fc.lookupLocked(filePath)
	fc.mu.RUnlock()
	if ok {
		fc.count(func(s *FileCacheStats) { s.CacheHits++ })
		return mf, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Another goroutine may have loaded it meanwhile.
	if mf, ok := fc.lookupLocked(filePath); ok {
		fc.count(func(s *FileCacheStats) { s.CacheHits++ })
		return mf, nil
	}
	fc.count(func(s *FileCacheStats) { s.CacheMisses++ })

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}
	if err := fc.checkLimitsLocked(stat.Size()); err != nil {
		return nil, err
	}

	mf, err = fc.load(filePath)
	if err != nil {
		return nil, err
	}
	if mf.File != nil || mf.Size == 0 {
		fc.mapped[filePath] = mf
	}
	fc.count(func(s *FileCacheStats) { s.FilesLoaded++ })
	return mf, nil
}

func (fc *fileCache) Bytes(filePath string) ([]byte, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(mf.Data))
	copy(out, mf.Data)
	return out, nil
}

func (fc *fileCache) checkLimitsLocked(newSize int64) error {
	if fc.config.MaxFiles > 0 {
		if n := len(fc.mapped) + len(fc.fallback); n >= fc.config.MaxFiles {
			return fmt.Errorf("file cache limit reached: %d files (limit: %d)", n, fc.config.MaxFiles)
		}
	}
	if fc.config.MaxMemoryMB > 0 && newSize > 0 {
		current := fc.totalMappedMBLocked()
		added := float64(newSize) / (1024 * 1024)
		if current+added >= float64(fc.config.MaxMemoryMB) {
			return fmt.Errorf("file cache memory limit reached: %.2f MB + %.2f MB (limit: %d MB)",
				current, added, fc.config.MaxMemoryMB)
		}
	}
	return nil
}

// load maps a file, falling back to reading it. Callers hold mu.
func (fc *fileCache) load(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}
	if stat.Size() == 0 {
		file.Close()
		return &MappedFile{Path: filePath, MappedAt: time.Now()}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback", "file", filePath, "size", stat.Size(), "error", err)
		file.Close()
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}
		fc.fallback[filePath] = raw
		fc.count(func(s *FileCacheStats) { s.MmapFailures++ })
		return wrapFallback(filePath, raw), nil
	}

	return &MappedFile{
		Path:     filePath,
		Data:     data,
		File:     file,
		Size:     stat.Size(),
		MappedAt: time.Now(),
	}, nil
}

func wrapFallback(filePath string, data []byte) *MappedFile {
	return &MappedFile{
		Path:     filePath,
		Data:     mmap.MMap(data),
		Size:     int64(len(data)),
		MappedAt: time.Now(),
	}
}

func (fc *fileCache) Invalidate(filePath string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if mf, ok := fc.mapped[filePath]; ok {
		if err := unmap(mf); err != nil {
			fc.logger.Warn("failed to release file", "path", filePath, "error", err)
		}
		delete(fc.mapped, filePath)
		fc.count(func(s *FileCacheStats) { s.Invalidations++ })
	}
	if _, ok := fc.fallback[filePath]; ok {
		delete(fc.fallback, filePath)
		fc.count(func(s *FileCacheStats) { s.Invalidations++ })
	}
}

func unmap(mf *MappedFile) error {
	var errs []error
	if mf.File != nil && mf.Data != nil {
		if err := mf.Data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
	}
	if mf.File != nil {
		if err := mf.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}
	return nil
}

func (fc *fileCache) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.mapped) + len(fc.fallback)
}

func (fc *fileCache) Stats() FileCacheStats {
	fc.mu.RLock()
	cached := len(fc.mapped) + len(fc.fallback)
	total := fc.totalMappedMBLocked()
	fc.mu.RUnlock()

	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()
	stats := fc.stats
	stats.FilesCached = cached
	stats.TotalMappedMB = total
	return stats
}

func (fc *fileCache) totalMappedMBLocked() float64 {
	var total int64
	for _, mf := range fc.mapped {
		total += mf.Size
	}
	for _, data := range fc.fallback {
		total += int64(len(data))
	}
	return float64(total) / (1024 * 1024)
}

func (fc *fileCache) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, mf := range fc.mapped {
		if err := unmap(mf); err != nil {
			fc.logger.Warn("failed to release file", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%q: %w", path, err))
		}
	}
	fc.mapped = make(map[string]*MappedFile)
	fc.fallback = make(map[string][]byte)

	fc.logger.Debug("file cache closed",
		"files_loaded", fc.stats.FilesLoaded,
		"cache_hits", fc.stats.CacheHits,
		"cache_misses", fc.stats.CacheMisses)

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func (fc *fileCache) count(update func(*FileCacheStats)) {
	if !fc.config.EnableMetrics {
		return
	}
	fc.statsMu.Lock()
	update(&fc.stats)
	fc.statsMu.Unlock()
}
