package command

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"staybook/internal/app"
	"staybook/internal/bot"
)

// NewBotCmd runs the chat front-end until interrupted.
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram front-end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireBot(); err != nil {
				return err
			}

			log.Info("Initializing components...")
			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Stop(context.Background()); err != nil {
					log.WithError(err).Error("Error stopping application")
				}
			}()

			handler, err := bot.NewHandler(cfg, a, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.Start(ctx, handler)
			log.Info("Staybook is running. Press Ctrl+C to exit.")
			handler.Start(ctx)

			log.Info("Shutting down Staybook...")
			return nil
		},
	}
}
