package main

import (
	"github.com/metalagman/goalpath/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web view and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Web.Addr = addr
			}
			return runUntilDone(cmd.Context(), c, fx.Invoke(app.ServeHTTP))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides web.addr)")
	return cmd
}

func mcpCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUntilDone(cmd.Context(), c, fx.Invoke(app.ServeMCP))
		},
	}
}
