package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/metalagman/goalpath/internal/config"
	"github.com/metalagman/goalpath/internal/logging"
	"github.com/spf13/cobra"
)

// annotationConfigOptional marks commands that run without a config file even
// when --config is given explicitly.
const annotationConfigOptional = "goalpath/config-optional"

// cli carries the state shared by every subcommand.
type cli struct {
	cfgFile string
	debug   bool
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:           "goalpath",
		Short:         "goalpath tracks goals, milestones and dependent tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", config.DefaultPath, "config file path")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(initCmd(c))
	cmd.AddCommand(goalCmd(c))
	cmd.AddCommand(milestoneCmd(c))
	cmd.AddCommand(taskCmd(c))
	cmd.AddCommand(toolCmd(c))
	cmd.AddCommand(planCmd(c))
	cmd.AddCommand(serveCmd(c))
	cmd.AddCommand(mcpCmd(c))
	return cmd
}

// setup loads .env, the config file and initialises logging. The default
// config path may be missing; an explicit --config must exist.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	optional := !cmd.Flags().Changed("config") || cmd.Annotations[annotationConfigOptional] == "true"
	cfg, err := loadConfig(c.cfgFile, optional)
	if err != nil {
		return err
	}
	if c.debug {
		cfg.Log.Debug = true
	}
	c.cfg = cfg
	logging.Init(cfg.Log.Debug, cfg.Log.Format)
	return nil
}
