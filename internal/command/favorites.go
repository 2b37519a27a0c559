package command

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"staybook/internal/app"
)

// NewFavoritesCmd groups the favorites subcommands.
func NewFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List or toggle favorite listings",
	}
	cmd.AddCommand(newFavoritesListCmd(), newFavoritesToggleCmd())
	return cmd
}

func newFavoritesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List favorites in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				favs := a.Favorites.List()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, english.Plural(len(favs), "favorite", ""))
				for _, l := range favs {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", l.ID, l.Title, l.Location, l.Price)
				}
				return nil
			})
		},
	}
}

func newFavoritesToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <listing-id>",
		Short: "Add a listing to favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				listing, ok := a.Catalog.ByID(args[0])
				if !ok {
					return fmt.Errorf("unknown listing %q", args[0])
				}
				_, ticket, err := a.Favorites.Toggle(listing)
				if err != nil {
					return err
				}
				if err := ticket.Wait(ctx); err != nil {
					return fmt.Errorf("favorite not saved: %w", err)
				}

				verb := "removed"
				if a.Favorites.IsFavorite(listing.ID) {
					verb = "added"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, listing.Title)
				return nil
			})
		},
	}
}
