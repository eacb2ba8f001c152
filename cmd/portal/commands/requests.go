package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spec-kit/marketplace-portal/internal/service"
)

func newRequestsCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"req"},
		Short:   "Provider request commands",
		Args:    cobra.NoArgs,
	}
	cmd.AddCommand(
		newRequestsListCommand(load),
		newDecideCommand(load, "approve", service.DecisionApprove),
		newDecideCommand(load, "reject", service.DecisionReject),
		newRequestsSubmitCommand(load),
	)
	return cmd
}

func newRequestsListCommand(load loader) *cobra.Command {
	var pendingOnly bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provider requests (admin)",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			list, err := e.portal.Requests.FetchRequests(cmd.Context())
			if err != nil {
				return err
			}
			if pendingOnly {
				list = service.RecentPending(list, limit)
			}
			return printJSON(cmd.OutOrStdout(), list)
		}),
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "only pending requests, newest first")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum pending requests to show")
	return cmd
}

func newDecideCommand(load loader, use string, decision service.Decision) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: fmt.Sprintf("%s a provider request (admin)", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid request id %q", args[0])
			}
			return run(load, func(cmd *cobra.Command, e *env) error {
				if _, err := e.portal.Requests.FetchRequests(cmd.Context()); err != nil {
					return err
				}
				if err := e.portal.Requests.Decide(cmd.Context(), id, decision); err != nil {
					return err
				}
				if req, ok := e.portal.Requests.Get(id); ok {
					return printJSON(cmd.OutOrStdout(), req)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "request %d: %s sent\n", id, decision)
				return nil
			})(cmd, args)
		},
	}
}

func newRequestsSubmitCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "submit [file]",
		Short: "Apply for provider status with a certification document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return run(load, func(cmd *cobra.Command, e *env) error {
				doc, err := openUpload(path)
				if err != nil {
					return err
				}
				e.portal.Uploads.SetDocument(doc)
				message, err := e.portal.Uploads.Submit(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})(cmd, args)
		},
	}
}
