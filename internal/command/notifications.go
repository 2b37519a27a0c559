package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"staybook/internal/app"
)

// NewNotificationsCmd groups the inbox subcommands.
func NewNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List notifications or mark one read",
	}
	cmd.AddCommand(newNotificationsListCmd(), newNotificationsReadCmd())
	return cmd
}

func newNotificationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notifications with their read state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d unread\n", a.Inbox.UnreadCount())
				for _, n := range a.Inbox.List() {
					mark := "*"
					if n.Read {
						mark = " "
					}
					fmt.Fprintf(out, "%s %s\t%s\t%s\n", mark, n.ID, n.Title, n.Time)
				}
				return nil
			})
		},
	}
}

func newNotificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Open a notification and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, ticket, err := a.Inbox.Open(args[0])
				if err != nil {
					return fmt.Errorf("notification %q: %w", args[0], err)
				}
				if err := ticket.Wait(ctx); err != nil {
					return fmt.Errorf("read state not saved: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", n.Title, n.Body)
				return nil
			})
		},
	}
}
