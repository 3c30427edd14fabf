package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/s-hit/mshd-backend/cmd/config"
	"github.com/s-hit/mshd-backend/cmd/migrate"
	"github.com/s-hit/mshd-backend/cmd/serve"
	"github.com/s-hit/mshd-backend/internal/conf"
)

// Context carries values shared by all commands. Settings is filled in by
// the root command before any subcommand runs.
type Context struct {
	ConfigFile string
	Version    string
	BuildDate  string
	Settings   *conf.Settings
}

// RootCommand creates and returns the root command
func RootCommand(ctx *Context) *cobra.Command {
	if ctx.Settings == nil {
		ctx.Settings = &conf.Settings{}
	}

	rootCmd := &cobra.Command{
		Use:           "mshd",
		Short:         "Disaster report collection and grouping server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, ctx); err != nil {
		panic(err)
	}

	configCmd := configcmd.Command(func() string { return ctx.ConfigFile })
	rootCmd.AddCommand(
		serve.Command(ctx.Settings),
		migrate.Command(ctx.Settings),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config subcommands work without a loadable configuration
		if cmd.Parent() == configCmd {
			return nil
		}

		settings, err := conf.Load(ctx.ConfigFile)
		if err != nil {
			return err
		}
		settings.Version = ctx.Version
		settings.BuildDate = ctx.BuildDate
		*ctx.Settings = *settings
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *Context) error {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/mshd, /etc/mshd)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
