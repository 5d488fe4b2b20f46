package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/goalpath/internal/tools"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func goalCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
	}
	cmd.AddCommand(goalAddCmd(c))
	cmd.AddCommand(goalListCmd(c))
	cmd.AddCommand(goalShowCmd(c))
	cmd.AddCommand(goalEditCmd(c))
	cmd.AddCommand(goalDeleteCmd(c))
	return cmd
}

func goalAddCmd(c *cli) *cobra.Command {
	var description, deadline string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := tracker.ParseDeadline(deadline)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				g, err := tr.CreateGoal(cmd.Context(), tracker.GoalInput{
					Title:       strings.Join(args, " "),
					Description: description,
					Deadline:    due,
				})
				if err != nil {
					return err
				}
				log.Info().Str("goal_id", g.ID).Msg("goal added")
				fmt.Fprintln(cmd.OutOrStdout(), g.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "goal description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD or RFC3339)")
	return cmd
}

func goalListCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				goals, err := tr.Goals(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch format {
				case formatJSON:
					return writeJSON(out, goals)
				case formatText:
					if len(goals) == 0 {
						log.Info().Msg("no goals")
						return nil
					}
					now := time.Now()
					for _, g := range goals {
						renderGoalLine(out, g, now)
					}
					return nil
				default:
					return fmt.Errorf("unsupported format %q (allowed: text, json)", format)
				}
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format (text|json)")
	return cmd
}

func goalShowCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal with its milestones and task states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				tree, snap, err := tr.Classify(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				view := tools.NewGoalView(tree, snap)
				out := cmd.OutOrStdout()
				switch format {
				case formatText:
					renderGoal(out, view, time.Now())
					return nil
				case formatJSON:
					return writeJSON(out, view)
				case formatYAML:
					enc := yaml.NewEncoder(out)
					enc.SetIndent(2)
					if err := enc.Encode(view); err != nil {
						return fmt.Errorf("encode yaml: %w", err)
					}
					return enc.Close()
				default:
					return fmt.Errorf("unsupported format %q (allowed: text, json, yaml)", format)
				}
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format (text|json|yaml)")
	return cmd
}

func goalEditCmd(c *cli) *cobra.Command {
	var title, description, deadline string
	var clearDeadline bool
	cmd := &cobra.Command{
		Use:   "edit <goal-id>",
		Short: "Edit a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := tracker.GoalPatch{
				Title:         optionalString(flags.Changed("title"), title),
				Description:   optionalString(flags.Changed("description"), description),
				ClearDeadline: clearDeadline,
			}
			if flags.Changed("deadline") {
				due, err := tracker.ParseDeadline(deadline)
				if err != nil {
					return err
				}
				patch.Deadline = due
			}
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				g, err := tr.EditGoal(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				log.Info().Str("goal_id", g.ID).Msg("goal updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "new deadline (YYYY-MM-DD or RFC3339)")
	cmd.Flags().BoolVar(&clearDeadline, "clear-deadline", false, "remove the deadline")
	cmd.MarkFlagsMutuallyExclusive("deadline", "clear-deadline")
	return cmd
}

func goalDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <goal-id>",
		Short: "Delete a goal with all its milestones and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				if err := tr.DeleteGoal(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.Info().Str("goal_id", args[0]).Msg("goal deleted")
				return nil
			})
		},
	}
}
