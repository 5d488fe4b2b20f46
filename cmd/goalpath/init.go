package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/metalagman/goalpath/internal/config"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func initCmd(c *cli) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Initialize a goalpath workspace",
		Long:        "Initialize a goalpath workspace by writing a default config and creating the database.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("user") {
				c.cfg.UserID = userID
			}
			if err := writeDefaultConfig(c.cfgFile, c.cfg); err != nil {
				return err
			}
			return withService(cmd.Context(), c, func(tr *tracker.Tracker) error {
				log.Info().Str("path", c.cfg.Database.Path).Str("user_id", tr.Owner()).Msg("database ready")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the goals in this workspace")
	return cmd
}

// writeDefaultConfig stores cfg at path unless a file already exists there.
func writeDefaultConfig(path string, cfg config.Config) error {
	if _, err := os.Stat(path); err == nil {
		log.Info().Str("path", path).Msg("config already exists, skipping")
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	log.Info().Str("path", path).Msg("installed default config")
	return nil
}
