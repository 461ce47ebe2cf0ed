// Package scriptcheck validates component scripts before they are shipped in
// the JS bundle. Scripts are parsed with tree-sitter and every ERROR or
// MISSING node is reported with its position. Top-level import and export
// statements are reported too: the bundle is loaded as a classic script.
package scriptcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"golang.org/x/sync/errgroup"

	"github.com/gnana997/snipkit/pkg/util"
)

// ErrClosed is returned by Check after Close.
var ErrClosed = errors.New("script checker closed")

// maxIssues caps the issues collected per script.
const maxIssues = 20

// Issue is one syntax problem. Line and Column are 1-based.
type Issue struct {
	Line    uint `json:"line"`
	Column  uint `json:"column"`
	Missing bool `json:"missing,omitempty"`
	// Module marks an import or export statement; Snippet holds the keyword.
	Module  bool   `json:"module,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

func (i Issue) String() string {
	if i.Module {
		return fmt.Sprintf("%d:%d: %s statement not allowed in bundled scripts", i.Line, i.Column, i.Snippet)
	}
	if i.Missing {
		return fmt.Sprintf("%d:%d: missing %s", i.Line, i.Column, i.Snippet)
	}
	if i.Snippet == "" {
		return fmt.Sprintf("%d:%d: syntax error", i.Line, i.Column)
	}
	return fmt.Sprintf("%d:%d: syntax error near %q", i.Line, i.Column, i.Snippet)
}

// Script is one named source in a batch check.
type Script struct {
	Name    string
	Dialect Dialect
	Source  string
}

// Result holds the issues found in one Script.
type Result struct {
	Name   string  `json:"name"`
	Issues []Issue `json:"issues,omitempty"`
}

// OK reports whether the script parsed cleanly.
func (r Result) OK() bool { return len(r.Issues) == 0 }

// Checker owns one parser pool per dialect. Safe for concurrent use; Close
// must be called to free the parsers.
type Checker struct {
	// inflight is held shared by each Check so Close waits for them.
	inflight sync.RWMutex

	mu       sync.RWMutex
	pools    map[Dialect]*parserPool
	poolSize int
	closed   bool
	logger   *slog.Logger
}

// NewChecker creates a Checker. poolSize <= 0 uses util.GetOptimalPoolSize.
func NewChecker(poolSize int, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		pools:    make(map[Dialect]*parserPool),
		poolSize: util.GetOptimalPoolSizeWithOverride(poolSize),
		logger:   logger,
	}
}

// Check parses src and returns its syntax issues. An empty script is valid.
func (c *Checker) Check(ctx context.Context, dialect Dialect, src string) ([]Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	c.inflight.RLock()
	defer c.inflight.RUnlock()
	pool, err := c.poolFor(dialect)
	if err != nil {
		return nil, err
	}
	parser, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire parser: %w", err)
	}
	source := []byte(src)
	tree := parser.Parse(source, nil)
	pool.release(parser)
	if tree == nil {
		return nil, fmt.Errorf("parser returned no tree for %s script", dialect)
	}
	defer tree.Close()

	root := tree.RootNode()
	var issues []Issue
	if root.HasError() {
		collectIssues(root, source, &issues)
		if len(issues) == 0 {
			// HasError without a located node; report the root.
			issues = append(issues, Issue{Line: 1, Column: 1})
		}
	}
	collectModuleSyntax(root, &issues)
	return issues, nil
}

// CheckAll checks scripts concurrently, bounded by the pool size. Results
// keep the input order.
func (c *Checker) CheckAll(ctx context.Context, scripts []Script) ([]Result, error) {
	results := make([]Result, len(scripts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.poolSize)
	for i, s := range scripts {
		g.Go(func() error {
			issues, err := c.Check(gctx, s.Dialect, s.Source)
			if err != nil {
				return fmt.Errorf("failed to check %s: %w", s.Name, err)
			}
			results[i] = Result{Name: s.Name, Issues: issues}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func collectIssues(n *ts.Node, source []byte, issues *[]Issue) {
	if len(*issues) >= maxIssues {
		return
	}
	if n.IsMissing() || n.IsError() {
		pos := n.StartPosition()
		issue := Issue{Line: pos.Row + 1, Column: pos.Column + 1, Missing: n.IsMissing()}
		if issue.Missing {
			issue.Snippet = n.Kind()
		} else {
			issue.Snippet = snippet(n.Utf8Text(source))
		}
		*issues = append(*issues, issue)
		if n.IsError() {
			return
		}
	}
	if !n.HasError() && !n.IsMissing() {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			collectIssues(child, source, issues)
		}
	}
}

var moduleStatements = map[string]string{
	"import_statement": "import",
	"export_statement": "export",
}

func collectModuleSyntax(root *ts.Node, issues *[]Issue) {
	for i := uint(0); i < root.NamedChildCount() && len(*issues) < maxIssues; i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		keyword, ok := moduleStatements[child.Kind()]
		if !ok {
			continue
		}
		pos := child.StartPosition()
		*issues = append(*issues, Issue{Line: pos.Row + 1, Column: pos.Column + 1, Module: true, Snippet: keyword})
	}
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 40 {
		text = text[:40]
	}
	return text
}

func (c *Checker) poolFor(dialect Dialect) (*parserPool, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClosed
	}
	pool, ok := c.pools[dialect]
	c.mu.RUnlock()
	if ok {
		return pool, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if pool, ok = c.pools[dialect]; ok {
		return pool, nil
	}
	langPtr, err := languagePointer(dialect)
	if err != nil {
		return nil, err
	}
	pool = newParserPool(dialect, langPtr, c.poolSize, c.logger)
	c.pools[dialect] = pool
	c.logger.Debug("created parser pool", "dialect", dialect.String(), "max_size", c.poolSize)
	return pool, nil
}

func languagePointer(dialect Dialect) (unsafe.Pointer, error) {
	switch dialect {
	case JavaScript:
		return ts_javascript.Language(), nil
	case TypeScript:
		return ts_typescript.LanguageTypescript(), nil
	case TSX:
		return ts_typescript.LanguageTSX(), nil
	default:
		return nil, fmt.Errorf("unsupported script dialect: %s", dialect)
	}
}

// ParsersCreated returns how many parsers exist across all dialects.
func (c *Checker) ParsersCreated() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, p := range c.pools {
		total += p.createdCount()
	}
	return total
}

// Close frees every parser. Checks after Close fail with ErrClosed.
func (c *Checker) Close() error {
	c.inflight.Lock()
	defer c.inflight.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for dialect, pool := range c.pools {
		n := pool.close()
		c.logger.Debug("closed parser pool", "dialect", dialect.String(), "parsers_closed", n)
	}
	c.pools = nil
	return nil
}
