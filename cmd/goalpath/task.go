package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func taskCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskAddCmd(c))
	cmd.AddCommand(taskEditCmd(c))
	cmd.AddCommand(taskDoneCmd(c))
	cmd.AddCommand(taskToggleCmd(c))
	cmd.AddCommand(taskDeleteCmd(c))
	cmd.AddCommand(taskAvailableCmd(c))
	return cmd
}

func taskAddCmd(c *cli) *cobra.Command {
	var (
		description string
		deadline    string
		dependsOn   []string
		estimate    int
		chain       bool
	)
	cmd := &cobra.Command{
		Use:   "add <milestone-id> <title>",
		Short: "Append a task to a milestone",
		Long: "Append a task to a milestone. Without --depends-on the task waits for the " +
			"previous task of the milestone unless --chain=false is given.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := tracker.ParseDeadline(deadline)
			if err != nil {
				return err
			}
			in := tracker.TaskInput{
				Title:            strings.Join(args[1:], " "),
				Description:      description,
				DependsOn:        dependsOn,
				ChainToPrevious:  chain && !cmd.Flags().Changed("depends-on"),
				Deadline:         due,
				EstimatedMinutes: optionalInt(cmd.Flags().Changed("estimate"), estimate),
			}
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				t, err := tr.CreateTask(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				log.Info().Str("task_id", t.ID).Strs("depends_on", t.DependsOn).Msg("task added")
				fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringSliceVar(&dependsOn, "depends-on", nil, "ids of tasks that must be completed first (repeatable)")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().BoolVar(&chain, "chain", true, "depend on the previous task when --depends-on is not given")
	return cmd
}

func taskEditCmd(c *cli) *cobra.Command {
	var (
		title         string
		description   string
		deadline      string
		dependsOn     []string
		noDeps        bool
		estimate      int
		order         int
		clearDeadline bool
		clearEstimate bool
	)
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Edit a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := tracker.TaskPatch{
				Title:            optionalString(flags.Changed("title"), title),
				Description:      optionalString(flags.Changed("description"), description),
				EstimatedMinutes: optionalInt(flags.Changed("estimate"), estimate),
				Order:            optionalInt(flags.Changed("order"), order),
				ClearDeadline:    clearDeadline,
				ClearEstimate:    clearEstimate,
			}
			switch {
			case noDeps:
				patch.DependsOn = &[]string{}
			case flags.Changed("depends-on"):
				patch.DependsOn = &dependsOn
			}
			if flags.Changed("deadline") {
				due, err := tracker.ParseDeadline(deadline)
				if err != nil {
					return err
				}
				patch.Deadline = due
			}
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				t, err := tr.EditTask(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				log.Info().Str("task_id", t.ID).Strs("depends_on", t.DependsOn).Msg("task updated")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "new deadline (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringSliceVar(&dependsOn, "depends-on", nil, "replace the dependency set (repeatable)")
	cmd.Flags().BoolVar(&noDeps, "no-deps", false, "remove every dependency")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().IntVar(&order, "order", 0, "new display position")
	cmd.Flags().BoolVar(&clearDeadline, "clear-deadline", false, "remove the deadline")
	cmd.Flags().BoolVar(&clearEstimate, "clear-estimate", false, "remove the estimate")
	cmd.MarkFlagsMutuallyExclusive("depends-on", "no-deps")
	cmd.MarkFlagsMutuallyExclusive("deadline", "clear-deadline")
	cmd.MarkFlagsMutuallyExclusive("estimate", "clear-estimate")
	return cmd
}

func taskDoneCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				t, err := tr.CompleteTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				log.Info().Str("task_id", t.ID).Msg("task done")
				return nil
			})
		},
	}
}

func taskToggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip a task between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				t, err := tr.ToggleTaskCompletion(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				log.Info().Str("task_id", t.ID).Bool("completed", t.Completed).Msg("task toggled")
				return nil
			})
		},
	}
}

func taskDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task; dependents lose the edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				if err := tr.DeleteTask(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.Info().Str("task_id", args[0]).Msg("task deleted")
				return nil
			})
		},
	}
}

func taskAvailableCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "available <goal-id>",
		Short: "List the tasks that can be worked on now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				tasks, err := tr.AvailableTasks(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch format {
				case formatJSON:
					return writeJSON(out, tasks)
				case formatText:
					if len(tasks) == 0 {
						log.Info().Msg("no available tasks")
						return nil
					}
					now := time.Now()
					for _, t := range tasks {
						renderTaskLine(out, t, now)
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
