package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"staybook/internal/app"
)

// NewHostModeCmd shows or switches between guest and host mode.
func NewHostModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "hostmode [on|off]",
		Short:     "Show or set host mode",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(args) == 1 {
					if err := a.HostMode.Set(args[0] == "on").Wait(ctx); err != nil {
						return fmt.Errorf("host mode not saved: %w", err)
					}
				}
				mode := "guest"
				if a.HostMode.Get() {
					mode = "host"
				}
				fmt.Fprintln(cmd.OutOrStdout(), mode)
				return nil
			})
		},
	}
}
