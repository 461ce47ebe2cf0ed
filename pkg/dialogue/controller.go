// Package dialogue drives one insertion dialogue from open to close: it
// loads the catalog, preferences, and strings, owns the selection state,
// renders previews, hands the final markup to the host, and persists
// preferences on the way out.
package dialogue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/i18n"
	"github.com/gnana997/snipkit/pkg/prefs"
	"github.com/gnana997/snipkit/pkg/render"
	"github.com/google/uuid"
)

var (
	// ErrNotReady is returned by events sent before initialization finished.
	ErrNotReady = errors.New("dialogue not ready")
	// ErrClosed is returned by events sent after Close or Insert.
	ErrClosed = errors.New("dialogue closed")
	// ErrUnknownComponent is returned for component names not in the catalog.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrPreferencesNotSaved marks a close whose preference write failed.
	// The dialogue is closed regardless.
	ErrPreferencesNotSaved = errors.New("preferences not saved")
)

// StringSource resolves localized strings in one batch. Values come back in
// key order; missing keys are reported with Found false.
type StringSource interface {
	LookupStrings(ctx context.Context, keys []string) ([]i18n.Value, error)
}

// Host is the editor surface receiving inserted markup.
type Host interface {
	Insert(ctx context.Context, ins render.Insertion) error
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context, ins render.Insertion) error

// Insert implements Host.
func (f HostFunc) Insert(ctx context.Context, ins render.Insertion) error { return f(ctx, ins) }

// Options tune dialogue behaviour.
type Options struct {
	// ShowPreview enables hover previews. When false Hover returns "".
	ShowPreview bool
	// PreviewCacheSize bounds the per-dialogue rendered preview cache.
	PreviewCacheSize int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{ShowPreview: true, PreviewCacheSize: 64}
}

// Deps are the collaborators of a Controller. Catalog and Prefs are
// required; the rest have defaults.
type Deps struct {
	Catalog catalog.Source
	Prefs   prefs.Store
	Strings StringSource
	Host    Host
	Logger  *slog.Logger
	// IDs returns a fresh id generator per dialogue. Defaults to UUIDv7 ids.
	IDs func() render.IDGenerator
	// Options are used as given; start from DefaultOptions, since the zero
	// value disables previews.
	Options Options
}

// OpenRequest identifies who opens a dialogue and where.
type OpenRequest struct {
	UserID      int64
	ContextID   int64
	StudentOnly bool
}

// Controller opens dialogues. It holds no per-dialogue state.
type Controller struct {
	deps Deps
}

// NewController fills defaults into deps and returns a Controller.
func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.IDs == nil {
		deps.IDs = func() render.IDGenerator { return render.NewUUIDGenerator() }
	}
	if deps.Options.PreviewCacheSize <= 0 {
		deps.Options.PreviewCacheSize = DefaultOptions().PreviewCacheSize
	}
	if deps.Host == nil {
		deps.Host = HostFunc(func(context.Context, render.Insertion) error { return nil })
	}
	return &Controller{deps: deps}
}

// Start begins initializing a dialogue in the background and returns it
// immediately. Events fail with ErrNotReady until Wait returns nil.
func (c *Controller) Start(ctx context.Context, req OpenRequest) *Dialogue {
	d := newDialogue(c.deps, req, uuid.NewString())
	initCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancelInit = cancel
	go d.initialize(initCtx)
	return d
}

// Open starts a dialogue and waits for it to become interactive. On a
// catalog failure the error wraps catalog.ErrCatalogUnavailable.
func (c *Controller) Open(ctx context.Context, req OpenRequest) (*Dialogue, error) {
	d := c.Start(ctx, req)
	if err := d.Wait(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	return d, nil
}
