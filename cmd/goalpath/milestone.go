package main

import (
	"fmt"
	"strings"

	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func milestoneCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "milestone",
		Aliases: []string{"ms"},
		Short:   "Manage milestones",
	}
	cmd.AddCommand(milestoneAddCmd(c))
	cmd.AddCommand(milestoneEditCmd(c))
	cmd.AddCommand(milestoneDeleteCmd(c))
	return cmd
}

func milestoneAddCmd(c *cli) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <goal-id> <title>",
		Short: "Append a milestone to a goal",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				m, err := tr.CreateMilestone(cmd.Context(), args[0], tracker.MilestoneInput{
					Title:       strings.Join(args[1:], " "),
					Description: description,
				})
				if err != nil {
					return err
				}
				log.Info().Str("milestone_id", m.ID).Int("order", m.Order).Msg("milestone added")
				fmt.Fprintln(cmd.OutOrStdout(), m.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "milestone description")
	return cmd
}

func milestoneEditCmd(c *cli) *cobra.Command {
	var title, description string
	var order int
	cmd := &cobra.Command{
		Use:   "edit <milestone-id>",
		Short: "Edit a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := tracker.MilestonePatch{
				Title:       optionalString(flags.Changed("title"), title),
				Description: optionalString(flags.Changed("description"), description),
				Order:       optionalInt(flags.Changed("order"), order),
			}
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				m, err := tr.EditMilestone(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				log.Info().Str("milestone_id", m.ID).Msg("milestone updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().IntVar(&order, "order", 0, "new display position")
	return cmd
}

func milestoneDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <milestone-id>",
		Short: "Delete a milestone with all its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				if err := tr.DeleteMilestone(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.Info().Str("milestone_id", args[0]).Msg("milestone deleted")
				return nil
			})
		},
	}
}
