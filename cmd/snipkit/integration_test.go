package main

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// binaryPath is set by TestMain after building the binary.
var binaryPath string

func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	tmp, err := os.MkdirTemp("", "snipkit-integration-*")
	if err != nil {
		panic(err)
	}
	binaryPath = filepath.Join(tmp, "snipkit")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func skipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run integration tests")
	}
}

// startServer launches snipkit serve on the embedded catalog and returns an
// initialized MCP client.
func startServer(t *testing.T, args ...string) *client.Client {
	t.Helper()

	c, err := client.NewStdioMCPClient(binaryPath, nil, append([]string{"serve", "--no-watch", "--log-level", "error"}, args...)...)
	require.NoError(t, err, "failed to start MCP server")
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "snipkit-integration-test", Version: "1.0.0"}

	result, err := c.Initialize(ctx, initReq)
	require.NoError(t, err, "failed to initialize MCP session")
	assert.Equal(t, "snipkit", result.ServerInfo.Name)
	return c
}

func callToolHelper(t *testing.T, c *client.Client, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	if args != nil {
		req.Params.Arguments = args
	}
	result, err := c.CallTool(ctx, req)
	require.NoError(t, err, "CallTool(%s) failed", toolName)
	return result
}

func extractJSON(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected content in result")
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

func TestIntegration_ListTools(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, len(tools.Tools))
	for i, tool := range tools.Tools {
		names[i] = tool.Name
	}
	for _, name := range []string{
		"open_dialogue", "get_view", "select_category", "select_flavor",
		"toggle_variant", "preview_component", "insert_component",
		"close_dialogue", "get_assets",
	} {
		assert.Contains(t, names, name)
	}
}

func TestIntegration_DialogueRoundTrip(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	result := callToolHelper(t, c, "open_dialogue", map[string]any{"user_id": 7, "context_id": 1, "locale": "de"})
	require.False(t, result.IsError, extractJSON(t, result))
	var opened struct {
		DialogueID string `json:"dialogue_id"`
		View       struct {
			CategoryID int64 `json:"category_id"`
			Components []struct {
				Name string `json:"name"`
			} `json:"components"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal([]byte(extractJSON(t, result)), &opened))
	require.NotEmpty(t, opened.DialogueID)
	assert.Equal(t, int64(1), opened.View.CategoryID)
	require.NotEmpty(t, opened.View.Components)

	id := opened.DialogueID
	result = callToolHelper(t, c, "toggle_variant", map[string]any{"dialogue_id": id, "component": "tip", "variant": "full-width"})
	require.False(t, result.IsError, extractJSON(t, result))
	assert.Contains(t, extractJSON(t, result), "full-width")

	result = callToolHelper(t, c, "insert_component", map[string]any{"dialogue_id": id, "component": "tip", "selection": "Hallo"})
	require.False(t, result.IsError, extractJSON(t, result))
	var ins map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractJSON(t, result)), &ins))
	assert.Contains(t, ins["html"], "Tipp")
	assert.Contains(t, ins["html"], "Hallo")
	assert.NotEmpty(t, ins["focus_id"])

	result = callToolHelper(t, c, "get_view", map[string]any{"dialogue_id": id})
	assert.True(t, result.IsError, "inserting closes the dialogue")
}

func TestIntegration_AssetsNeedDatabase(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	result := callToolHelper(t, c, "get_assets", map[string]any{"kind": "css"})
	assert.True(t, result.IsError)
}

func TestIntegration_AssetsFromDatabase(t *testing.T) {
	skipIfNotIntegration(t)
	db := seedDB(t, t.TempDir())
	c := startServer(t, "--db", db)

	result := callToolHelper(t, c, "get_assets", map[string]any{"kind": "js"})
	require.False(t, result.IsError, extractJSON(t, result))
	var b map[string]any
	require.NoError(t, json.Unmarshal([]byte(extractJSON(t, result)), &b))
	assert.Equal(t, "js", b["kind"])
	assert.Contains(t, b["content"], "window.snipkitNote")
	assert.NotEmpty(t, b["skipped"])
}
