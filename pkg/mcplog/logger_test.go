package mcplog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), "torn line %q", scanner.Text())
		out = append(out, e)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestSanitizeParams(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		wantKeys []string
		wantSkip []string
	}{
		{name: "nil map", input: nil},
		{name: "ids pass through", input: map[string]any{"dialogue_id": "d1", "category_id": float64(3)}, wantKeys: []string{"dialogue_id", "category_id"}},
		{name: "long selection replaced", input: map[string]any{"selection": string(make([]byte, 200))}, wantKeys: []string{"selection_len"}, wantSkip: []string{"selection"}},
		{name: "bool and nil pass through", input: map[string]any{"student": true, "extra": nil}, wantKeys: []string{"student", "extra"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := SanitizeParams(tc.input)
			for _, k := range tc.wantKeys {
				assert.Contains(t, out, k)
			}
			for _, k := range tc.wantSkip {
				assert.NotContains(t, out, k)
			}
		})
	}
	assert.Equal(t, 200, SanitizeParams(map[string]any{"selection": string(make([]byte, 200))})["selection_len"])
}

func TestOutcomeAndResponseBytes(t *testing.T) {
	assert.Equal(t, 0, ResponseBytes(nil))
	ok := mcp.NewToolResultText(`{"html":"<b></b>"}`)
	assert.Greater(t, ResponseBytes(ok), 0)

	assert.Equal(t, OutcomeOK, Outcome(ok, nil))
	assert.Equal(t, OutcomeToolError, Outcome(mcp.NewToolResultError("unknown dialogue"), nil))
	assert.Equal(t, OutcomeError, Outcome(nil, errors.New("boom")))
}

func TestNewEntry(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	restore := Now
	Now = func() time.Time { return start.Add(42 * time.Millisecond) }
	defer func() { Now = restore }()

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "select_flavor",
		Arguments: map[string]any{"dialogue_id": "R1", "flavor_id": float64(5)},
	}}
	e := NewEntry(start, req, mcp.NewToolResultText("{}"), nil)
	assert.Equal(t, "2026-10-19T09:00:00Z", e.Ts)
	assert.Equal(t, "select_flavor", e.Tool)
	assert.Equal(t, "R1", e.Dialogue)
	assert.Equal(t, int64(42), e.DurationMs)
	assert.Equal(t, OutcomeOK, e.Outcome)
	assert.Nil(t, e.Error)

	e = NewEntry(start, mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "open_dialogue"}}, nil, errors.New("boom"))
	assert.Empty(t, e.Dialogue)
	require.NotNil(t, e.Error)
	assert.Equal(t, "boom", *e.Error)
}

func TestLoggerWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)

	entries := []LogEntry{
		{Tool: "open_dialogue", Params: map[string]any{}, DurationMs: 5, Outcome: OutcomeOK},
		{Tool: "toggle_variant", Dialogue: "R1", Params: map[string]any{"variant": "quote"}, DurationMs: 2, Outcome: OutcomeOK},
		{Tool: "insert_component", Dialogue: "R1", Params: map[string]any{"selection_len": 120}, DurationMs: 9, Outcome: OutcomeToolError},
	}
	for _, e := range entries {
		require.NoError(t, logger.Write(e))
	}
	require.NoError(t, logger.Close())

	got := readEntries(t, path)
	require.Len(t, got, len(entries))
	for i, e := range entries {
		assert.Equal(t, e.Tool, got[i].Tool)
		assert.Equal(t, e.Dialogue, got[i].Dialogue)
		assert.Equal(t, e.DurationMs, got[i].DurationMs)
		assert.Equal(t, e.Outcome, got[i].Outcome)
	}
}

func TestLoggerConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)

	const goroutines, writesEach = 50, 10
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < writesEach; j++ {
				_ = logger.Write(LogEntry{Tool: "get_view", Outcome: OutcomeOK})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())
	assert.Len(t, readEntries(t, path), goroutines*writesEach)
}

func TestNewLogger_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "mcp.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewLogger_EmptyPath(t *testing.T) {
	logger, err := NewLogger("")
	require.NoError(t, err)
	assert.Nil(t, logger)
}
