package main

import (
	"fmt"

	"github.com/knzhou-cli/knzhou/internal/config"
	"github.com/knzhou-cli/knzhou/internal/utils"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigInitCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the config file location and effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			status := gray.Render("(not created, using defaults)")
			if utils.FileExists(cfg.Path) {
				status = ""
			}
			fmt.Fprintf(w, "# %s %s\n", cfg.Path, status)

			data, err := toml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(cmd)
			force, _ := cmd.Flags().GetBool("force")
			if utils.FileExists(path) && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", green.Render("✓"), path)
			return nil
		},
	}
	cmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
	return cmd
}
