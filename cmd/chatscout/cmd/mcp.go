package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/chatscout/chatscout/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This lets an MCP client search the workspace using tools like
search_messages, get_thread, list_channels, get_reactions, and
check_auth.

Add to the client config:
  {
    "mcpServers": {
      "chatscout": {
        "command": "chatscout",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		return mcpserver.Serve(cmd.Context(), eng)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
