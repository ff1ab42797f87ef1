package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agenticadvertising/addie-shell/internal/browser"
	"github.com/agenticadvertising/addie-shell/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose addie to agents via the Model Context Protocol",
	}

	cmd.AddCommand(newMCPServeCmd())
	return cmd
}

func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run an MCP server on stdin/stdout",
		Long: `Run an MCP server that exposes the shell's auth operations as tools
(auth_state, session_token, login, logout). Point your agent's MCP
configuration at 'addie mcp serve'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := mcp.NewServer(cmd.Root().Version, apiBaseFromContext(cmd.Context()), browser.Default{})
			return srv.ServeStdio()
		},
	}
}
