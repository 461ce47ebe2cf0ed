package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gnana997/snipkit/pkg/catalog"
	"github.com/gnana997/snipkit/pkg/prefs"
	"github.com/gnana997/snipkit/pkg/render"
	"github.com/gnana997/snipkit/pkg/selection"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// Dialogue is one open insertion dialogue. Its methods are safe for
// concurrent use; events are applied one at a time.
type Dialogue struct {
	id     string
	req    OpenRequest
	deps   Deps
	logger *slog.Logger

	ready      chan struct{}
	cancelInit context.CancelFunc

	mu       sync.Mutex
	initDone bool
	initErr  error
	closed   bool

	cat      *catalog.Catalog
	machine  *selection.Machine
	resolver *render.Resolver
	previews *lru.Cache[string, string]
}

func newDialogue(deps Deps, req OpenRequest, id string) *Dialogue {
	return &Dialogue{
		id:     id,
		req:    req,
		deps:   deps,
		logger: deps.Logger.With("dialogue", id),
		ready:  make(chan struct{}),
	}
}

// ID returns the dialogue's session id.
func (d *Dialogue) ID() string { return d.id }

// Ready reports whether initialization has finished successfully.
func (d *Dialogue) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initDone && d.initErr == nil
}

// Wait blocks until initialization finishes or ctx is done. It returns the
// initialization error, if any.
func (d *Dialogue) Wait(ctx context.Context) error {
	select {
	case <-d.ready:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loaded struct {
	cat      *catalog.Catalog
	seed     prefs.Seed
	resolver *render.Resolver
}

func (d *Dialogue) initialize(ctx context.Context) {
	res, err := d.load(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	defer close(d.ready)

	d.initDone = true
	if d.closed {
		d.logger.Debug("dropping initialization of closed dialogue")
		d.initErr = ErrClosed
		return
	}
	if err != nil {
		d.logger.Error("dialogue failed to open", "error", err)
		d.initErr = err
		return
	}

	previews, err := lru.New[string, string](d.deps.Options.PreviewCacheSize)
	if err != nil {
		d.initErr = fmt.Errorf("failed to create preview cache: %w", err)
		return
	}
	d.cat = res.cat
	d.resolver = res.resolver
	d.machine = selection.New(res.cat, res.seed)
	d.previews = previews
	d.logger.Debug("dialogue ready",
		"categories", len(res.cat.Categories),
		"components", len(res.cat.Components),
		"category", d.machine.CategoryID())
}

// load fetches the catalog and preferences concurrently, then resolves every
// string the catalog's templates and variant titles need in one batch.
func (d *Dialogue) load(ctx context.Context) (*loaded, error) {
	var (
		cat *catalog.Catalog
		raw prefs.Raw
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = catalog.Load(gctx, d.deps.Catalog, catalog.FetchRequest{
			ContextID:   d.req.ContextID,
			StudentOnly: d.req.StudentOnly,
		}, d.logger)
		return err
	})
	g.Go(func() error {
		var err error
		raw, err = d.deps.Prefs.LoadPreferences(gctx, d.req.UserID)
		if err != nil {
			d.logger.Warn("failed to load preferences, using defaults", "user", d.req.UserID, "error", err)
			raw = prefs.Raw{}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seed, err := prefs.Decode(raw)
	if err != nil {
		d.logger.Debug("recovered malformed preferences", "user", d.req.UserID, "error", err)
	}

	table := d.lookupStrings(ctx, cat)
	return &loaded{
		cat:      cat,
		seed:     seed,
		resolver: render.NewResolver(d.deps.IDs(), table),
	}, nil
}

func (d *Dialogue) lookupStrings(ctx context.Context, cat *catalog.Catalog) render.StringTable {
	table := make(render.StringTable)
	if d.deps.Strings == nil {
		return table
	}

	keys := render.ScanKeys(cat.CodeTemplates())
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, v := range cat.Variants {
		if !seen[v.Name] {
			seen[v.Name] = true
			keys = append(keys, v.Name)
		}
	}
	if len(keys) == 0 {
		return table
	}

	values, err := d.deps.Strings.LookupStrings(ctx, keys)
	if err != nil {
		d.logger.Warn("string lookup failed, tokens left unresolved", "keys", len(keys), "error", err)
		return table
	}
	for i, key := range keys {
		if i >= len(values) {
			break
		}
		if values[i].Found {
			table[key] = values[i].Text
		} else {
			d.logger.Debug("missing localized string", "key", key)
		}
	}
	return table
}

// active returns nil when events may be applied. Callers hold d.mu.
func (d *Dialogue) active() error {
	switch {
	case d.closed:
		return ErrClosed
	case !d.initDone:
		return ErrNotReady
	case d.initErr != nil:
		return d.initErr
	}
	return nil
}

// SelectCategory switches the current category and returns the new view.
func (d *Dialogue) SelectCategory(categoryID int64) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.active(); err != nil {
		return View{}, err
	}
	if _, ok := d.cat.Category(categoryID); !ok {
		d.logger.Debug("ignoring unknown category", "category", categoryID)
	}
	if err := d.machine.SelectCategory(categoryID); err != nil {
		return View{}, err
	}
	d.previews.Purge()
	return d.view(), nil
}

// SelectFlavor switches the current flavor, drops every cached preview, and
// returns the new view.
func (d *Dialogue) SelectFlavor(flavorID int64) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.active(); err != nil {
		return View{}, err
	}
	if err := d.machine.SelectFlavor(flavorID); err != nil {
		return View{}, err
	}
	d.previews.Purge()
	return d.view(), nil
}

// ToggleVariant flips a variant of one component and returns that
// component's refreshed button and preview.
func (d *Dialogue) ToggleVariant(componentName, variantName string) (ComponentButton, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.active(); err != nil {
		return ComponentButton{}, "", err
	}
	comp, ok := d.cat.ComponentByName(componentName)
	if !ok {
		return ComponentButton{}, "", fmt.Errorf("%w: %s", ErrUnknownComponent, componentName)
	}
	if !comp.SupportsVariant(variantName) {
		d.logger.Debug("ignoring ineligible variant", "component", componentName, "variant", variantName)
	}
	if err := d.machine.ToggleVariant(componentName, variantName); err != nil {
		return ComponentButton{}, "", err
	}
	d.previews.Remove(comp.Name)
	return d.componentButton(comp), d.preview(comp), nil
}

// Hover returns the preview of a component under the current selection.
func (d *Dialogue) Hover(componentName string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.active(); err != nil {
		return "", err
	}
	comp, ok := d.cat.ComponentByName(componentName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownComponent, componentName)
	}
	return d.preview(comp), nil
}

// preview renders through the cache. Callers hold d.mu.
func (d *Dialogue) preview(comp *catalog.Component) string {
	if !d.deps.Options.ShowPreview {
		return ""
	}
	if html, ok := d.previews.Get(comp.Name); ok {
		return html
	}
	html := d.resolver.Preview(d.input(comp))
	d.previews.Add(comp.Name, html)
	return html
}

func (d *Dialogue) input(comp *catalog.Component) render.Input {
	var categoryName string
	if c, ok := d.cat.Category(d.machine.CategoryID()); ok {
		categoryName = c.Name
	}
	return render.Input{
		Component:    comp,
		CategoryName: categoryName,
		Flavor:       d.machine.EffectiveFlavor(comp.Name),
		Variants:     d.machine.ActiveVariants(comp.Name),
	}
}

// Insert renders the component around selection, hands it to the host, and
// closes the dialogue. A host failure leaves the dialogue open. When the host
// accepted the markup but preferences could not be saved, the insertion is
// returned together with an error wrapping ErrPreferencesNotSaved.
func (d *Dialogue) Insert(ctx context.Context, componentName, selection string) (render.Insertion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.active(); err != nil {
		return render.Insertion{}, err
	}
	comp, ok := d.cat.ComponentByName(componentName)
	if !ok {
		return render.Insertion{}, fmt.Errorf("%w: %s", ErrUnknownComponent, componentName)
	}

	ins := d.resolver.Insert(d.input(comp), selection)
	if err := d.deps.Host.Insert(ctx, ins); err != nil {
		return render.Insertion{}, fmt.Errorf("host rejected insertion: %w", err)
	}
	d.logger.Info("component inserted", "component", comp.Name, "focus", ins.FocusID)

	if err := d.closeLocked(ctx); err != nil {
		return ins, err
	}
	return ins, nil
}

// Close ends the dialogue and persists preferences. Closing before
// initialization finished discards the pending load and persists nothing.
// Repeated calls return nil.
func (d *Dialogue) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked(ctx)
}

func (d *Dialogue) closeLocked(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.cancelInit != nil {
		d.cancelInit()
	}
	if !d.initDone || d.initErr != nil {
		d.logger.Debug("dialogue closed before it was ready")
		return nil
	}

	raw, err := d.machine.Close()
	if err != nil && !errors.Is(err, selection.ErrClosed) {
		return err
	}
	d.previews.Purge()
	if err := d.deps.Prefs.SavePreferences(ctx, d.req.UserID, raw); err != nil {
		return fmt.Errorf("%w: %w", ErrPreferencesNotSaved, err)
	}
	d.logger.Debug("preferences saved", "user", d.req.UserID, "category", raw.Category)
	return nil
}

// View returns the current button set.
func (d *Dialogue) View() (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.active(); err != nil {
		return View{}, err
	}
	return d.view(), nil
}
