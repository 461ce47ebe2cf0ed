package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAssetFiles writes a small asset tree into a temp dir.
func setupAssetFiles(t *testing.T) (dir string, files map[string]string) {
	t.Helper()

	dir = t.TempDir()
	files = make(map[string]string)
	write := func(name string, data []byte) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
		files[name] = p
	}

	write("images/1/keyconcept.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"><circle r="4"/></svg>`))
	write("images/1/tip.png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01})
	write("images/2/empty.svg", []byte{})
	write("extra.css", []byte(strings.Repeat(".snipkit-tag{color:red}\n", 1000)))
	return dir, files
}

func TestFileCache_GetAndBytes(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(DefaultFileCacheConfig())
	defer cache.Close()

	assert.Equal(t, 0, cache.Size())

	mf, err := cache.Get(files["images/1/keyconcept.svg"])
	require.NoError(t, err)
	assert.Equal(t, files["images/1/keyconcept.svg"], mf.Path)
	assert.Contains(t, string(mf.Data), "<circle")
	assert.Equal(t, 1, cache.Size())

	data, err := cache.Bytes(files["images/1/tip.png"])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01}, data)
	assert.Equal(t, 2, cache.Size())

	// A second Get is a hit on the same mapping.
	again, err := cache.Get(files["images/1/keyconcept.svg"])
	require.NoError(t, err)
	assert.Same(t, mf, again)

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.FilesLoaded)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, 2, stats.FilesCached)
}

func TestFileCache_EmptyFile(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(nil)
	defer cache.Close()

	data, err := cache.Bytes(files["images/2/empty.svg"])
	require.NoError(t, err)
	assert.Empty(t, data)

	mf, err := cache.Get(files["images/2/empty.svg"])
	require.NoError(t, err)
	assert.Nil(t, mf.File)
	assert.Equal(t, int64(0), mf.Size)
}

func TestFileCache_MissingFile(t *testing.T) {
	dir, _ := setupAssetFiles(t)
	cache := NewFileCache(nil)
	defer cache.Close()

	_, err := cache.Get(filepath.Join(dir, "images", "9", "nope.svg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat file")
	assert.Equal(t, 0, cache.Size())
}

func TestFileCache_BytesIsACopy(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(nil)
	defer cache.Close()

	data, err := cache.Bytes(files["extra.css"])
	require.NoError(t, err)
	data[0] = '#'

	again, err := cache.Bytes(files["extra.css"])
	require.NoError(t, err)
	assert.Equal(t, byte('.'), again[0])
}

func TestFileCache_InvalidateReloads(t *testing.T) {
	_, files := setupAssetFiles(t)
	path := files["images/1/keyconcept.svg"]
	cache := NewFileCache(nil)
	defer cache.Close()

	_, err := cache.Get(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("<svg>changed</svg>"), 0o644))
	cache.Invalidate(path)
	assert.Equal(t, 0, cache.Size())

	data, err := cache.Bytes(path)
	require.NoError(t, err)
	assert.Equal(t, "<svg>changed</svg>", string(data))
	assert.Equal(t, int64(1), cache.Stats().Invalidations)

	cache.Invalidate(filepath.Join(filepath.Dir(path), "unknown.svg"))
	assert.Equal(t, int64(1), cache.Stats().Invalidations)
}

func TestFileCache_MaxFiles(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(&FileCacheConfig{MaxFiles: 1})
	defer cache.Close()

	_, err := cache.Get(files["images/1/keyconcept.svg"])
	require.NoError(t, err)
	_, err = cache.Get(files["images/1/tip.png"])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file cache limit reached")
}

func TestFileCache_MaxMemory(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(big, make([]byte, 2*1024*1024), 0o644))

	cache := NewFileCache(&FileCacheConfig{MaxMemoryMB: 1})
	defer cache.Close()

	_, err := cache.Get(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory limit")
}

func TestFileCache_MetricsDisabled(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(&FileCacheConfig{})
	defer cache.Close()

	_, err := cache.Get(files["extra.css"])
	require.NoError(t, err)
	_, err = cache.Get(files["extra.css"])
	require.NoError(t, err)

	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.CacheHits)
	assert.Equal(t, 1, stats.FilesCached)
	assert.Greater(t, stats.TotalMappedMB, 0.0)
}

func TestFileCache_ConcurrentReads(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(UnboundedFileCacheConfig())
	defer cache.Close()

	names := []string{"images/1/keyconcept.svg", "images/1/tip.png", "extra.css"}
	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := names[i%len(names)]
			data, err := cache.Bytes(files[name])
			if err != nil {
				errs <- err
				return
			}
			if len(data) == 0 {
				errs <- fmt.Errorf("%s: empty read", name)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 3, cache.Size())
}

func TestFileCache_Close(t *testing.T) {
	_, files := setupAssetFiles(t)
	cache := NewFileCache(nil)

	_, err := cache.Get(files["extra.css"])
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	assert.Equal(t, 0, cache.Size())

	// Usable again after close.
	_, err = cache.Get(files["extra.css"])
	require.NoError(t, err)
	require.NoError(t, cache.Close())
}
