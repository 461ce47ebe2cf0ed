// Package assets builds the stylesheet and script bundles served alongside
// the editor. Bundles are assembled from the stored catalog, cached in an
// LRU, and stamped with a revision that only ever increases.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/scriptcheck"
	"github.com/gnana997/snipkit/pkg/store"
	"github.com/gnana997/snipkit/pkg/util"
)

// Kind names a bundle.
type Kind string

const (
	KindCSS Kind = "css"
	KindJS  Kind = "js"
)

// ParseKind accepts "css" or "js".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCSS, KindJS:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown bundle kind %q", s)
}

// Bundle is one built asset.
type Bundle struct {
	Kind     Kind                 `json:"kind"`
	Revision int64                `json:"revision"`
	Content  string               `json:"content"`
	Skipped  []scriptcheck.Result `json:"skipped,omitempty"`
}

// DatasetReader supplies the stored catalog. *store.Store satisfies it.
type DatasetReader interface {
	Dataset(ctx context.Context) (*store.Dataset, error)
}

// ScriptChecker validates component scripts. *scriptcheck.Checker
// satisfies it.
type ScriptChecker interface {
	CheckAll(ctx context.Context, scripts []scriptcheck.Script) ([]scriptcheck.Result, error)
}

// Options configures a Pipeline.
type Options struct {
	// BaseURL replaces the assets token in bundle content.
	BaseURL string
	// ExtraDir holds stylesheets appended to the CSS bundle.
	ExtraDir string
	// ExtraInclude selects files under ExtraDir. Defaults to **/*.css.
	ExtraInclude []string
	// Files reads extra stylesheets. Defaults to an unbounded cache.
	Files util.FileCache
	// Checker drops component scripts with syntax errors. Nil keeps all.
	Checker ScriptChecker
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline builds and caches bundles. Safe for concurrent use.
type Pipeline struct {
	src    DatasetReader
	opts   Options
	files  util.FileCache
	logger *slog.Logger

	// mu serializes builds and revision changes.
	mu       sync.Mutex
	revision int64
	cache    *lru.Cache[Kind, *Bundle]
}

// NewPipeline creates a Pipeline whose first revision is the current time.
func NewPipeline(src DatasetReader, opts Options) (*Pipeline, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.ExtraInclude) == 0 {
		opts.ExtraInclude = []string{"**/*.css"}
	}
	files := opts.Files
	if files == nil {
		files = util.NewFileCache(util.UnboundedFileCacheConfig())
	}
	cache, err := lru.New[Kind, *Bundle](2)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle cache: %w", err)
	}
	return &Pipeline{
		src:      src,
		opts:     opts,
		files:    files,
		logger:   opts.Logger,
		revision: opts.Now().Unix(),
		cache:    cache,
	}, nil
}

// Get returns the cached bundle, building it on a miss.
func (p *Pipeline) Get(ctx context.Context, kind Kind) (*Bundle, error) {
	if b, ok := p.cache.Get(kind); ok {
		return b, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.cache.Get(kind); ok {
		return b, nil
	}

	ds, err := p.src.Dataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog for %s bundle: %w", kind, err)
	}

	var b *Bundle
	switch kind {
	case KindCSS:
		b, err = p.buildCSS(ds)
	case KindJS:
		b, err = p.buildJS(ctx, ds)
	default:
		err = fmt.Errorf("unknown bundle kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	b.Content = catalog.ExpandAssets(b.Content, p.opts.BaseURL)
	b.Revision = p.revision
	p.cache.Add(kind, b)

	p.logger.Debug("built asset bundle", "kind", kind, "revision", b.Revision, "bytes", len(b.Content))
	return b, nil
}

// CSS returns the stylesheet bundle.
func (p *Pipeline) CSS(ctx context.Context) (*Bundle, error) { return p.Get(ctx, KindCSS) }

// JS returns the script bundle.
func (p *Pipeline) JS(ctx context.Context) (*Bundle, error) { return p.Get(ctx, KindJS) }

// Revision returns the revision the next build will carry.
func (p *Pipeline) Revision() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}

// Purge drops both bundles and advances the revision.
func (p *Pipeline) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Purge()
	next := p.opts.Now().Unix()
	if next <= p.revision {
		next = p.revision + 1
	}
	p.revision = next
	p.logger.Debug("purged asset bundles", "revision", next)
}

// InvalidateFile drops a changed file from the file cache and purges the
// bundles.
func (p *Pipeline) InvalidateFile(path string) {
	p.files.Invalidate(path)
	p.Purge()
}

func (p *Pipeline) buildCSS(ds *store.Dataset) (*Bundle, error) {
	var extra []string
	if p.opts.ExtraDir != "" {
		rels, err := Discover(p.opts.ExtraDir, p.opts.ExtraInclude, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list extra stylesheets: %w", err)
		}
		for _, rel := range rels {
			data, err := p.files.Bytes(filepath.Join(p.opts.ExtraDir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, fmt.Errorf("failed to read stylesheet %s: %w", rel, err)
			}
			extra = append(extra, string(data))
		}
	}
	return &Bundle{Kind: KindCSS, Content: buildCSS(ds, extra)}, nil
}

func (p *Pipeline) buildJS(ctx context.Context, ds *store.Dataset) (*Bundle, error) {
	b := &Bundle{Kind: KindJS}
	// skip maps a component to the reason its script is left out.
	skip := make(map[string]string)

	if p.opts.Checker != nil {
		var scripts []scriptcheck.Script
		for _, c := range ds.Components {
			if c.JS != "" {
				scripts = append(scripts, scriptcheck.Script{Name: c.Name, Dialect: scriptcheck.JavaScript, Source: c.JS})
			}
		}
		results, err := p.opts.Checker.CheckAll(ctx, scripts)
		if err != nil {
			return nil, fmt.Errorf("failed to check component scripts: %w", err)
		}
		for _, r := range results {
			if r.OK() {
				continue
			}
			skip[r.Name] = "syntax error"
			if r.Issues[0].Module {
				skip[r.Name] = "module syntax"
			}
			b.Skipped = append(b.Skipped, r)
			p.logger.Warn("skipping invalid component script",
				"component", r.Name, "first_issue", r.Issues[0].String())
		}
	}

	var entries []string
	for _, c := range ds.Components {
		if c.JS == "" {
			continue
		}
		if reason, ok := skip[c.Name]; ok {
			entries = append(entries, fmt.Sprintf("/* %s: skipped, %s */", c.Name, reason))
			continue
		}
		entries = append(entries, c.JS)
	}
	b.Content = join(jsHeader, entries)
	return b, nil
}
