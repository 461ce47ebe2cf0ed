package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
)

// ParseSnapshot parses a snapshot from raw JSON bytes.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return &snap, nil
}

// ReadSnapshotFile reads and parses a JSON snapshot file.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseSnapshot(data)
}

// LoadFromBytes parses and normalizes a catalog from raw JSON bytes.
func LoadFromBytes(data []byte) (*Catalog, []error, error) {
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, nil, err
	}
	cat, issues := Build(snap)
	return cat, issues, nil
}

// LoadFromFile parses and normalizes a catalog from a JSON file.
func LoadFromFile(path string) (*Catalog, []error, error) {
	snap, err := ReadSnapshotFile(path)
	if err != nil {
		return nil, nil, err
	}
	cat, issues := Build(snap)
	return cat, issues, nil
}

// FilterForStudents returns a copy of snap without entries hidden from
// students. Flavor names pointing at removed flavors are left for Build to drop.
func FilterForStudents(snap *Snapshot) *Snapshot {
	out := &Snapshot{
		Categories: snap.Categories,
		Variants:   snap.Variants,
	}
	for _, comp := range snap.Components {
		if !comp.HideForStudents {
			out.Components = append(out.Components, comp)
		}
	}
	for _, f := range snap.Flavors {
		if !f.HideForStudents {
			out.Flavors = append(out.Flavors, f)
		}
	}
	return out
}

// StaticSource serves a fixed snapshot.
type StaticSource struct {
	Snapshot *Snapshot
}

// FetchCatalog implements Source.
func (s StaticSource) FetchCatalog(_ context.Context, req FetchRequest) (*Snapshot, error) {
	if s.Snapshot == nil {
		return nil, fmt.Errorf("no snapshot configured")
	}
	if req.StudentOnly {
		return FilterForStudents(s.Snapshot), nil
	}
	return s.Snapshot, nil
}

// FileSource serves the snapshot stored in a JSON file. The file is read on
// construction and again on every Reload; a failed reload keeps the last
// good snapshot.
type FileSource struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// NewFileSource reads path and returns a source serving it.
func NewFileSource(path string) (*FileSource, error) {
	fs := &FileSource{path: path}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// NewBytesSource serves a snapshot parsed from data, e.g. an embedded catalog.
func NewBytesSource(data []byte) (*FileSource, error) {
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, err
	}
	fs := &FileSource{}
	fs.current.Store(snap)
	return fs, nil
}

// Path returns the backing file path, or "" for byte-backed sources.
func (fs *FileSource) Path() string {
	return fs.path
}

// Reload re-reads the backing file.
func (fs *FileSource) Reload() error {
	if fs.path == "" {
		return nil
	}
	snap, err := ReadSnapshotFile(fs.path)
	if err != nil {
		return err
	}
	fs.current.Store(snap)
	return nil
}

// FetchCatalog implements Source.
func (fs *FileSource) FetchCatalog(ctx context.Context, req FetchRequest) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return StaticSource{Snapshot: fs.current.Load()}.FetchCatalog(ctx, req)
}
