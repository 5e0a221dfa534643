package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var recentLimit int

func init() {
	recentCmd.Flags().IntVar(&recentLimit, "limit", 0, "maximum links to list (default ADMIN_LINKS_LIMIT)")
	rootCmd.AddCommand(recentCmd, usersCmd, forceDeleteCmd)
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently created links, active or not",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := newToolbox()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		links, err := tb.admin.RecentLinks(ctx, recentLimit)
		if err != nil {
			return err
		}

		for _, l := range links {
			state := "active"
			if !l.IsActive {
				state = "inactive"
			}
			fmt.Printf("%-12s %-8s %6d clicks  %s\n", l.ShortCode, state, l.Clicks, l.OriginalURL)
		}
		fmt.Printf("%d links\n", len(links))
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := newToolbox()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		users, err := tb.admin.AllUsers(ctx)
		if err != nil {
			return err
		}

		for _, u := range users {
			fmt.Printf("%4d  %-20s %-30s admin=%-5t active=%t\n", u.ID, u.Username, u.Email, u.IsAdmin, u.IsActive)
		}
		fmt.Printf("%d users\n", len(users))
		return nil
	},
}

var forceDeleteCmd = &cobra.Command{
	Use:   "force-delete <short_code>",
	Short: "Deactivate a link regardless of who owns it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := newToolbox()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := tb.admin.ForceDeleteLink(ctx, args[0]); err != nil {
			return err
		}

		fmt.Printf("link %s deactivated\n", args[0])
		return nil
	},
}
