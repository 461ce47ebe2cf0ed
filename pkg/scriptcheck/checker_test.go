package scriptcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker(t *testing.T, size int) *Checker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c := NewChecker(size, logger)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCheck_ValidScripts(t *testing.T) {
	c := newTestChecker(t, 2)
	ctx := context.Background()

	cases := []struct {
		dialect Dialect
		src     string
	}{
		{JavaScript, `document.querySelectorAll('.snipkit-tag').forEach(el => el.classList.add('ready'));`},
		{TypeScript, `const toggle = (el: HTMLElement): void => { el.hidden = !el.hidden; };`},
		{TSX, `const Badge = () => <span className="snipkit-tag">new</span>;`},
		{JavaScript, "   \n"},
	}
	for _, tc := range cases {
		issues, err := c.Check(ctx, tc.dialect, tc.src)
		require.NoError(t, err, tc.dialect.String())
		assert.Empty(t, issues, tc.src)
	}
}

func TestCheck_ReportsPosition(t *testing.T) {
	c := newTestChecker(t, 1)

	issues, err := c.Check(context.Background(), JavaScript, "var ok = 1;\nfunction broken( {\n  return 2;\n")
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.GreaterOrEqual(t, issues[0].Line, uint(2))
	assert.NotEmpty(t, issues[0].String())
}

func TestCheck_ModuleSyntax(t *testing.T) {
	c := newTestChecker(t, 1)
	src := "import { x } from './x.js';\nconst y = 1;\nexport default y;\n"

	for _, dialect := range []Dialect{JavaScript, TypeScript} {
		issues, err := c.Check(context.Background(), dialect, src)
		require.NoError(t, err)
		require.Len(t, issues, 2, dialect.String())
		assert.Equal(t, Issue{Line: 1, Column: 1, Module: true, Snippet: "import"}, issues[0])
		assert.Equal(t, Issue{Line: 3, Column: 1, Module: true, Snippet: "export"}, issues[1])
		assert.Equal(t, "3:1: export statement not allowed in bundled scripts", issues[1].String())
	}

	// Dynamic import is an expression and stays allowed.
	issues, err := c.Check(context.Background(), JavaScript, "import('./x.js').then(m => m.run());")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheck_UnsupportedDialect(t *testing.T) {
	c := newTestChecker(t, 1)
	_, err := c.Check(context.Background(), Unknown, "x")
	assert.Error(t, err)
}

func TestCheck_CancelledContext(t *testing.T) {
	c := newTestChecker(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Check(ctx, JavaScript, "x = 1;")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck_AfterClose(t *testing.T) {
	c := NewChecker(1, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err := c.Check(context.Background(), JavaScript, "x = 1;")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCheckAll_KeepsOrder(t *testing.T) {
	c := newTestChecker(t, 2)
	scripts := []Script{
		{Name: "keyconcept", Dialect: JavaScript, Source: "let a = 1;"},
		{Name: "broken", Dialect: JavaScript, Source: "let = ;"},
		{Name: "tip", Dialect: JavaScript, Source: ""},
	}
	results, err := c.CheckAll(context.Background(), scripts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "keyconcept", results[0].Name)
	assert.True(t, results[0].OK())
	assert.Equal(t, "broken", results[1].Name)
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK())
}

func TestCheck_ConcurrentUseBoundedPool(t *testing.T) {
	c := newTestChecker(t, 3)
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issues, err := c.Check(context.Background(), JavaScript, fmt.Sprintf("const v%d = %d;", i, i))
			if err != nil {
				errs <- err
			} else if len(issues) > 0 {
				errs <- fmt.Errorf("script %d: %v", i, issues)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.LessOrEqual(t, c.ParsersCreated(), 3)
}

func TestDialects(t *testing.T) {
	assert.Equal(t, JavaScript, DialectForPath("widgets/tabs.JS"))
	assert.Equal(t, TypeScript, DialectForPath("a.mts"))
	assert.Equal(t, TSX, DialectForPath("a.tsx"))
	assert.Equal(t, Unknown, DialectForPath("a.css"))
	assert.Equal(t, JavaScript, ParseDialect(""))
	assert.Equal(t, TypeScript, ParseDialect("TS"))
	assert.Equal(t, Unknown, ParseDialect("python"))
	assert.Equal(t, "tsx", TSX.String())
}
