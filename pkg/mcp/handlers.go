package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/snipkit/pkg/assets"
	"github.com/gnana997/snipkit/pkg/dialogue"
	"github.com/gnana997/snipkit/pkg/mcplog"
	"github.com/gnana997/snipkit/pkg/render"
)

type openResult struct {
	DialogueID string        `json:"dialogue_id"`
	View       dialogue.View `json:"view"`
}

type toggleResult struct {
	Component dialogue.ComponentButton `json:"component"`
	Preview   string                   `json:"preview"`
}

type previewResult struct {
	Component string `json:"component"`
	Preview   string `json:"preview"`
}

type insertResult struct {
	render.Insertion
	Closed  bool   `json:"closed"`
	Warning string `json:"warning,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// session resolves the dialogue named in req. A nil dialogue comes with
// the tool error to return.
func (s *Server) session(req mcp.CallToolRequest) (*dialogue.Dialogue, *mcp.CallToolResult) {
	id, err := req.RequireString(mcplog.DialogueParam)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	d, ok := s.sessions.get(id)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("no open dialogue %q", id))
	}
	return d, nil
}

func (s *Server) handleOpenDialogue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	open := dialogue.OpenRequest{
		UserID:      int64(req.GetInt("user_id", 0)),
		ContextID:   int64(req.GetInt("context_id", 0)),
		StudentOnly: req.GetBool("student", false),
	}
	locale := req.GetString("locale", s.cfg.DefaultLocale)

	d, err := s.controller(locale).Open(ctx, open)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to open dialogue", err), nil
	}
	view, err := d.View()
	if err != nil {
		_ = d.Close(ctx)
		return mcp.NewToolResultErrorFromErr("failed to open dialogue", err), nil
	}
	s.sessions.add(d)
	s.logger.Info("dialogue opened", "dialogue", d.ID(), "user", open.UserID, "context", open.ContextID, "locale", locale)
	return jsonResult(openResult{DialogueID: d.ID(), View: view})
}

func (s *Server) handleGetView(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	view, err := d.View()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) handleSelectCategory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	id, err := req.RequireInt("category_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := d.SelectCategory(int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) handleSelectFlavor(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	id, err := req.RequireInt("flavor_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := d.SelectFlavor(int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) handleToggleVariant(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	component, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	variant, err := req.RequireString("variant")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	button, preview, err := d.ToggleVariant(component, variant)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toggleResult{Component: button, Preview: preview})
}

func (s *Server) handlePreviewComponent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	component, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	preview, err := d.Hover(component)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(previewResult{Component: component, Preview: preview})
}

func (s *Server) handleInsertComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	component, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ins, err := d.Insert(ctx, component, req.GetString("selection", ""))
	result := insertResult{Insertion: ins, Closed: true}
	switch {
	case errors.Is(err, dialogue.ErrPreferencesNotSaved):
		s.logger.Warn("component inserted but preferences were not saved", "dialogue", d.ID(), "error", err)
		result.Warning = err.Error()
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.sessions.remove(d.ID())
	return jsonResult(result)
}

func (s *Server) handleCloseDialogue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, errResult := s.session(req)
	if d == nil {
		return errResult, nil
	}
	err := d.Close(ctx)
	s.sessions.remove(d.ID())
	if err != nil {
		return mcp.NewToolResultErrorFromErr("dialogue closed without saving preferences", err), nil
	}
	return jsonResult(map[string]bool{"closed": true})
}

func (s *Server) handleGetAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Assets == nil {
		return mcp.NewToolResultError("asset bundles are not configured"), nil
	}
	name, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := assets.ParseKind(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.cfg.Assets.Get(ctx, kind)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to build bundle", err), nil
	}
	return jsonResult(b)
}
