package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/metalagman/goalpath/internal/tools"
	"github.com/spf13/cobra"
)

func toolCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Inspect and invoke assistant tools",
	}
	cmd.AddCommand(toolListCmd())
	cmd.AddCommand(toolCallCmd(c))
	return cmd
}

func toolListCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tool catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if verbose {
				return writeJSON(out, tools.Catalogue())
			}
			for _, def := range tools.Catalogue() {
				fmt.Fprintf(out, "%s\t%s\n", def.Name, def.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print input schemas as JSON")
	return cmd
}

func toolCallCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <name> [json-arguments|-]",
		Short: "Invoke a tool the way the assistant does",
		Long:  "Invoke a tool with JSON arguments. Pass - to read the arguments from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := toolArguments(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			return withService(cmd.Context(), c, func(d *tools.Dispatcher) error {
				res := d.DispatchJSON(cmd.Context(), args[0], raw)
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				return resultError(res)
			})
		},
	}
	return cmd
}

func toolArguments(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(args[0]) != "-" {
		return []byte(args[0]), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read arguments: %w", err)
	}
	return data, nil
}
