package main

import (
	"fmt"

	"github.com/metalagman/goalpath/internal/planner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func planCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Import goal decompositions",
	}
	cmd.AddCommand(planApplyCmd(c))
	return cmd
}

func planApplyCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Create a goal with its milestones and tasks from a YAML or JSON plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := planner.Load(args[0])
			if err != nil {
				return err
			}
			if err := plan.Validate(); err != nil {
				return fmt.Errorf("invalid plan: %w", err)
			}
			if dryRun {
				log.Info().
					Str("goal", plan.Goal.Title).
					Int("milestones", len(plan.Milestones)).
					Int("tasks", plan.TaskCount()).
					Msg("plan is valid")
				return nil
			}
			return withService(cmd.Context(), c, func(p *planner.Planner) error {
				res, err := p.Apply(cmd.Context(), plan)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the plan without writing it")
	return cmd
}
