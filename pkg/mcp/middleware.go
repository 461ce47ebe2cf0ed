package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/snipkit/pkg/mcplog"
)

// loggingMiddleware writes one JSONL entry per tool call. Only installed
// when a call log is configured.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := mcplog.Now()
			result, err := next(ctx, req)
			entry := mcplog.NewEntry(start, req, result, err)
			_ = s.cfg.CallLog.Write(entry)
			s.logger.Debug("tool call",
				"tool", entry.Tool,
				"dialogue", entry.Dialogue,
				"outcome", entry.Outcome,
				"duration_ms", entry.DurationMs)
			return result, err
		}
	}
}
