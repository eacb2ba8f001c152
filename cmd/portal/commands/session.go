package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/marketplace-portal/internal/service"
	"github.com/spec-kit/marketplace-portal/internal/worker"
)

func newLoginCommand(load loader) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			user, err := e.portal.Sessions.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCommand(load loader) *cobra.Command {
	var in service.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			if in.Confirmation == "" {
				in.Confirmation = in.Password
			}
			user, err := e.portal.Sessions.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		}),
	}
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&in.Confirmation, "confirm", "", "password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			if err := e.portal.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func newWhoamiCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Reload and print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			user, err := e.portal.Sessions.FetchUser(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		}),
	}
}

func newRefreshCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the bearer token",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			if err := e.portal.Sessions.RefreshToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token refreshed")
			return nil
		}),
	}
}

func newKeepaliveCommand(load loader) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "keepalive",
		Short: "Keep the session's token fresh until interrupted",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			if _, err := requireUser(cmd, e); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return worker.RunSessionRefresher(ctx, e.portal.Sessions, interval, e.logger)
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "how often to check the token")
	return cmd
}
