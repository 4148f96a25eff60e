package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panelwell/panelwell/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Expose the study to MCP clients over stdio. The server publishes the
panel_simulate, panel_describe, and panel_fit tools plus a datasets
resource, all backed by the same study database as the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			if err := requireStudy(root); err != nil {
				return err
			}

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "panelwell",
				Version: version,
				Root:    root,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer srv.Close()

			return srv.Run(cmd.Context())
		},
	}

	return cmd
}
