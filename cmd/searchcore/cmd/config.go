package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aman-news/searchcore/configs"
	"github.com/aman-news/searchcore/internal/config"
	"github.com/aman-news/searchcore/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults + file + environment)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented example config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(os.Stdout)

			path := configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}

			if _, err := os.Stat(path); err == nil {
				if !force {
					out.Warningf("config already exists at %s (use --force to overwrite)", path)
					return nil
				}
				backup, err := config.BackupConfig(path)
				if err != nil {
					return err
				}
				if backup != "" {
					out.Statusf("💾", "backed up existing config to %s", backup)
				}
			}

			if err := configs.WriteExampleConfig(path); err != nil {
				return err
			}
			out.Successf("wrote example config to %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config (a backup is kept)")
	return cmd
}
