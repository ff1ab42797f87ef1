// Package mcp exposes the shell's command surface to local agent tooling
// over the Model Context Protocol. The tools mirror what the GUI runtime
// invokes natively: auth state, session token, login and logout.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agenticadvertising/addie-shell/internal/auth"
	"github.com/agenticadvertising/addie-shell/internal/browser"
	"github.com/agenticadvertising/addie-shell/internal/session"
)

const serverName = "addie-shell"

// AuthState is the auth_state tool result.
type AuthState struct {
	IsAuthenticated bool       `json:"is_authenticated"`
	User            *auth.User `json:"user,omitempty"`
}

// Server wires the shell operations into MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	apiBase   string
	opener    browser.Opener
}

// NewServer creates an MCP server for the given API origin. The opener
// is used by the login tool; pass browser.Default{} outside tests.
func NewServer(version, apiBase string, opener browser.Opener) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		apiBase:   apiBase,
		opener:    opener,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("auth_state",
			mcp.WithDescription("Get the current authentication state and signed-in user"),
		),
		s.handleAuthState,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("session_token",
			mcp.WithDescription("Get the sealed session token for authenticated API calls"),
		),
		s.handleSessionToken,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("login",
			mcp.WithDescription("Start the browser login flow"),
		),
		s.handleLogin,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("logout",
			mcp.WithDescription("Sign out and delete the stored session"),
		),
		s.handleLogout,
	)
}

func (s *Server) handleAuthState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := session.Load()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read session: %v", err)), nil
	}

	state := AuthState{}
	if sess != nil {
		state.IsAuthenticated = true
		state.User = &auth.User{
			ID:        sess.UserID,
			Email:     sess.Email,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
		}
	}

	return jsonResult(state)
}

func (s *Server) handleSessionToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := session.Load()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read session: %v", err)), nil
	}
	if sess == nil {
		return mcp.NewToolResultError("not logged in"), nil
	}
	return mcp.NewToolResultText(sess.SealedSession), nil
}

func (s *Server) handleLogin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := auth.StartLogin(s.apiBase, s.opener); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Browser opened; complete the login there. The session arrives via the addie:// callback."), nil
}

func (s *Server) handleLogout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := auth.Logout(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Logged out."), nil
}

// ServeStdio runs the MCP server on stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
