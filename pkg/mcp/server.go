// Package mcp exposes insertion dialogues as MCP tools over stdio. Each
// open_dialogue call starts a session addressed by its dialogue id; the
// remaining tools drive that session until it is inserted or closed.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/snipkit/pkg/assets"
	"github.com/gnana997/snipkit/pkg/dialogue"
	"github.com/gnana997/snipkit/pkg/i18n"
	"github.com/gnana997/snipkit/pkg/mcplog"
)

const serverVersion = "0.3.0"

// DefaultMaxSessions bounds concurrently open dialogues.
const DefaultMaxSessions = 64

// AssetSource serves CSS/JS bundles. *assets.Pipeline satisfies it.
type AssetSource interface {
	Get(ctx context.Context, kind assets.Kind) (*assets.Bundle, error)
}

// Config wires a Server.
type Config struct {
	// Deps are shared by every dialogue. When Strings is set, Deps.Strings
	// is replaced per dialogue by the localizer for the requested locale.
	Deps          dialogue.Deps
	Strings       *i18n.Bundle
	DefaultLocale string
	// Assets may be nil; get_assets then reports a tool error.
	Assets AssetSource
	// CallLog may be nil to disable JSONL call logging.
	CallLog     *mcplog.Logger
	Logger      *slog.Logger
	MaxSessions int
}

// Server implements the snipkit MCP server.
type Server struct {
	mcpServer *server.MCPServer
	cfg       Config
	logger    *slog.Logger
	sessions  *sessions

	ctrlMu      sync.Mutex
	controllers map[string]*dialogue.Controller
}

// NewServer registers every tool.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	sess, err := newSessions(cfg.MaxSessions, cfg.Logger)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:         cfg,
		logger:      cfg.Logger,
		sessions:    sess,
		controllers: make(map[string]*dialogue.Controller),
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if cfg.CallLog != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("snipkit", serverVersion, opts...)
	s.mcpServer.AddTools(s.tools()...)
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin/stdout until the client disconnects or the
// process is signalled.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Serve speaks the stdio transport over in and out until ctx is done or in
// is closed. Transport errors go to the server logger.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(slogWriter{s.logger}, "", 0))
	return stdio.Listen(ctx, in, out)
}

// slogWriter forwards the transport's log.Logger output to slog.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Warn("mcp transport", "message", strings.TrimSpace(string(p)))
	return len(p), nil
}

// Shutdown closes every open dialogue, saving its preferences.
func (s *Server) Shutdown() {
	n := s.sessions.closeAll()
	s.logger.Info("mcp server shut down", "dialogues_closed", n)
}

// controller returns the Controller for locale, creating it on first use.
func (s *Server) controller(locale string) *dialogue.Controller {
	if s.cfg.Strings == nil {
		locale = ""
	}
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if c, ok := s.controllers[locale]; ok {
		return c
	}
	deps := s.cfg.Deps
	if s.cfg.Strings != nil {
		deps.Strings = s.cfg.Strings.Localizer(locale)
	}
	c := dialogue.NewController(deps)
	s.controllers[locale] = c
	return c
}

func (s *Server) String() string {
	return fmt.Sprintf("snipkit mcp server (%d open dialogues)", s.sessions.len())
}
