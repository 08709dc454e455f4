package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/andywolf/ralph/internal/config"
	"github.com/andywolf/ralph/internal/version"
)

// New builds the MCP server exposing ralph_run, ralph_status,
// ralph_stop, and ralph_list_hats, parameterised the way the original
// Rust tool-server's RunParams/StatusParams/StopParams/ListHatsParams
// are (ralph-mcp/src/tools.rs): prompt + optional config + optional
// working_dir for ralph_run, session_id for status/stop, optional
// config for ralph_list_hats.
func New() *server.MCPServer {
	s := server.NewMCPServer("ralph", version.Short())
	mgr := NewManager()

	s.AddTool(runTool(), runHandler(mgr))
	s.AddTool(statusTool(), statusHandler(mgr))
	s.AddTool(stopTool(), stopHandler(mgr))
	s.AddTool(listHatsTool(), listHatsHandler())

	return s
}

// Serve runs the MCP server over stdio until the client disconnects.
func Serve() error {
	return server.ServeStdio(New())
}

func runTool() mcp.Tool {
	return mcp.NewTool("ralph_run",
		mcp.WithDescription("Start a Ralph orchestration run against an objective and return a session id to poll"),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt or task description to execute"),
		),
		mcp.WithString("config",
			mcp.Description("Path to Ralph config file (defaults to .ralph.yaml in the working directory)"),
		),
		mcp.WithString("working_dir",
			mcp.Description("Working directory used to resolve a relative config path"),
		),
	)
}

func runHandler(mgr *Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		configPath := req.GetString("config", "")
		workingDir := req.GetString("working_dir", "")

		sess, err := mgr.Start(prompt, configPath, workingDir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("session %s started: %s", sess.ID, prompt)), nil
	}
}

func statusTool() mcp.Tool {
	return mcp.NewTool("ralph_status",
		mcp.WithDescription("Check the status of a Ralph session started by ralph_run"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID to check status for"),
		),
	)
}

func statusHandler(mgr *Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		snap, ok := mgr.Status(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", id)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "session %s: %s (iterations=%d)", snap.ID, snap.Status, snap.Iterations)
		if snap.Reason != "" {
			fmt.Fprintf(&sb, " reason=%s", snap.Reason)
		}
		if snap.Err != "" {
			fmt.Fprintf(&sb, " error=%s", snap.Err)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func stopTool() mcp.Tool {
	return mcp.NewTool("ralph_stop",
		mcp.WithDescription("Request that a running Ralph session stop at its next iteration boundary"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID to stop"),
		),
	)
}

func stopHandler(mgr *Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !mgr.Stop(id) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown session %q", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("stop requested for session %s", id)), nil
	}
}

func listHatsTool() mcp.Tool {
	return mcp.NewTool("ralph_list_hats",
		mcp.WithDescription("List the hats (roles) configured for a Ralph run"),
		mcp.WithString("config",
			mcp.Description("Path to Ralph config file (defaults to .ralph.yaml in the working directory)"),
		),
	)
}

func listHatsHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		configPath := req.GetString("config", "")

		cfg, err := config.Load(configPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(cfg.Hats) == 0 {
			return mcp.NewToolResultText("no hats configured (hatless Ralph handles every topic)"), nil
		}

		var sb strings.Builder
		for id, h := range cfg.Hats {
			fmt.Fprintf(&sb, "%s (%s): subscribes=%v publishes=%v\n", id, h.Name, h.Triggers, h.Publishes)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
