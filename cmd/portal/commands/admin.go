package commands

import (
	"github.com/spf13/cobra"
)

func newUsersCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User commands (admin)",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			users, err := e.portal.Users.FetchAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), users)
		}),
	})
	return cmd
}

func newPagesCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Service page commands (admin)",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every provider's page",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			pages, err := e.portal.Pages.FetchAllPagesAdmin(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pages)
		}),
	})
	return cmd
}

func newDashboardCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize users, requests and pages (admin)",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			dashboard, err := e.portal.LoadDashboard(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dashboard)
		}),
	}
}
