// Package command implements the staybook command line.
package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"staybook/internal/app"
	"staybook/internal/config"
)

const AppName = "staybook"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCmd(Version).Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Staybook - rental marketplace client",
		Long:          "Staybook keeps favorites, preferences and the signed-in session of a rental marketplace account.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "./configs", "directory holding config.yaml and .env")

	cmd.AddCommand(
		NewBotCmd(),
		NewFavoritesCmd(),
		NewHostModeCmd(),
		NewNotificationsCmd(),
		NewVersionCmd(version),
	)
	return cmd
}

// NewVersionCmd prints the build version.
func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", AppName, version)
			return nil
		},
	}
}

// newLogger returns the JSON logger used by every command.
func newLogger(level string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(lvl)
	return log, nil
}

// loadConfig reads the configuration from the --config directory.
func loadConfig(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	dir, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	log, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}
	log.WithFields(logrus.Fields{
		"storage_driver": cfg.StorageDriver,
		"storage_path":   cfg.StoragePath(),
	}).Debug("Configuration loaded successfully")
	return cfg, log, nil
}

// withApp runs fn against a loaded app and stops it afterwards, so pending
// writes are on disk when the command returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if stopErr := a.Stop(context.Background()); err == nil {
			err = stopErr
		}
	}()

	a.Load(ctx)
	return fn(ctx, a)
}
