package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/snipkit/pkg/mcplog"
)

func dialogueIDArg() mcp.ToolOption {
	return mcp.WithString(mcplog.DialogueParam, mcp.Required(),
		mcp.Description("Dialogue id returned by open_dialogue"))
}

func componentArg() mcp.ToolOption {
	return mcp.WithString("component", mcp.Required(), mcp.Description("Component name"))
}

// tools pairs every tool definition with its handler.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("open_dialogue",
				mcp.WithDescription("Open an insertion dialogue. Loads the catalog and the user's saved selections, and returns the dialogue id with its initial view."),
				mcp.WithNumber("user_id", mcp.Description("User whose preferences are loaded and saved")),
				mcp.WithNumber("context_id", mcp.Description("Context the catalog is fetched for")),
				mcp.WithBoolean("student", mcp.Description("Hide components and flavors reserved for teachers")),
				mcp.WithString("locale", mcp.Description("Preferred locale, e.g. de-AT; falls back to English")),
			),
			Handler: s.handleOpenDialogue,
		},
		{
			Tool: mcp.NewTool("get_view",
				mcp.WithDescription("Return the dialogue's current categories, flavors, and component buttons."),
				dialogueIDArg(),
			),
			Handler: s.handleGetView,
		},
		{
			Tool: mcp.NewTool("select_category",
				mcp.WithDescription("Switch the active category. Unknown ids leave the view unchanged."),
				dialogueIDArg(),
				mcp.WithNumber("category_id", mcp.Required(), mcp.Description("Category id; -1 selects unassigned components")),
			),
			Handler: s.handleSelectCategory,
		},
		{
			Tool: mcp.NewTool("select_flavor",
				mcp.WithDescription("Switch the flavor for the active category. Flavors outside the category are ignored."),
				dialogueIDArg(),
				mcp.WithNumber("flavor_id", mcp.Required(), mcp.Description("Flavor id")),
			),
			Handler: s.handleSelectFlavor,
		},
		{
			Tool: mcp.NewTool("toggle_variant",
				mcp.WithDescription("Toggle a variant on a component and return its refreshed button and preview."),
				dialogueIDArg(),
				componentArg(),
				mcp.WithString("variant", mcp.Required(), mcp.Description("Variant name")),
			),
			Handler: s.handleToggleVariant,
		},
		{
			Tool: mcp.NewTool("preview_component",
				mcp.WithDescription("Render a component's preview HTML as it would be inserted now."),
				dialogueIDArg(),
				componentArg(),
			),
			Handler: s.handlePreviewComponent,
		},
		{
			Tool: mcp.NewTool("insert_component",
				mcp.WithDescription("Render a component around the selection and close the dialogue. Returns the HTML and the id of the element to focus."),
				dialogueIDArg(),
				componentArg(),
				mcp.WithString("selection", mcp.Description("Selected editor content placed inside the component")),
			),
			Handler: s.handleInsertComponent,
		},
		{
			Tool: mcp.NewTool("close_dialogue",
				mcp.WithDescription("Close a dialogue without inserting, saving its selections."),
				dialogueIDArg(),
			),
			Handler: s.handleCloseDialogue,
		},
		{
			Tool: mcp.NewTool("get_assets",
				mcp.WithDescription("Return the stylesheet or script bundle with its revision."),
				mcp.WithString("kind", mcp.Required(), mcp.Enum("css", "js"), mcp.Description("Bundle kind")),
			),
			Handler: s.handleGetAssets,
		},
	}
}
