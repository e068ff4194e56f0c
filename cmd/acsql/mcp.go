package main

import (
	"github.com/spf13/cobra"

	"github.com/acsql/acsql/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start a Model Context Protocol server on stdio exposing the read-only catalog queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, _, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			return mcp.NewServer(store, version).Run(ctx)
		},
	}

	return cmd
}
