package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s-hit/mshd-backend/internal/conf"
)

// Command creates the config command group. configFile reports the
// --config flag value at run time.
func Command(configFile func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(configFile))
	return cmd
}

func initCommand(configFile func() string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config.yaml with default values and a fresh JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile()
			if path == "" {
				var err error
				if path, err = conf.DefaultConfigFile(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			settings, err := conf.DefaultSettings()
			if err != nil {
				return err
			}
			if settings.Auth.JWTSecret, err = conf.GenerateRandomSecret(); err != nil {
				return err
			}
			if err := conf.SaveYAMLConfig(path, settings); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
