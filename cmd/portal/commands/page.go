package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/marketplace-portal/internal/service"
)

func newPageCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Service page commands (providers)",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newPageShowCommand(load), newPageSaveCommand(load))
	return cmd
}

type pageView struct {
	Page any      `json:"page"`
	Menu []string `json:"menu"`
}

func newPageShowCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your service page and its menu",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			user, err := requireUser(cmd, e)
			if err != nil {
				return err
			}
			draft, err := loadDraft(cmd, e, user.ID)
			if err != nil {
				return err
			}
			page := e.portal.Pages.Page()
			if page == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no service page yet")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), pageView{Page: page, Menu: draft.Names()})
		}),
	}
}

func newPageSaveCommand(load loader) *cobra.Command {
	var (
		content    string
		addMenu    []string
		removeMenu []string
		logoPath   string
		bannerPath string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or replace your service page",
		Args:  cobra.NoArgs,
		RunE: run(load, func(cmd *cobra.Command, e *env) error {
			user, err := requireUser(cmd, e)
			if err != nil {
				return err
			}
			draft, err := loadDraft(cmd, e, user.ID)
			if err != nil {
				return err
			}
			for _, name := range addMenu {
				if err := draft.Add(name); err != nil {
					return fmt.Errorf("menu item %q: %w", name, err)
				}
			}
			for _, name := range removeMenu {
				draft.Remove(name)
			}
			if content == "" && e.portal.Pages.Page() != nil {
				content = e.portal.Pages.Page().Content
			}

			logo, err := openUpload(logoPath)
			if err != nil {
				return err
			}
			banner, err := openUpload(bannerPath)
			if err != nil {
				return err
			}

			page, err := e.portal.Pages.SavePage(cmd.Context(), user.ID, service.SavePageInput{
				Content: content,
				Menu:    draft.Items(),
				Logo:    logo,
				Banner:  banner,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		}),
	}
	cmd.Flags().StringVarP(&content, "content", "c", "", "page content (defaults to the current content)")
	cmd.Flags().StringArrayVarP(&addMenu, "menu", "m", nil, "menu item to add (repeatable)")
	cmd.Flags().StringArrayVar(&removeMenu, "remove-menu", nil, "unsaved menu item to drop (repeatable)")
	cmd.Flags().StringVar(&logoPath, "logo", "", "logo image file")
	cmd.Flags().StringVar(&bannerPath, "banner", "", "banner image file")
	return cmd
}

// loadDraft fetches the page and the owner's menus and seeds a draft from them.
func loadDraft(cmd *cobra.Command, e *env, ownerID int64) (*service.MenuDraft, error) {
	page, err := e.portal.Pages.FetchServicePage(cmd.Context())
	if err != nil {
		return nil, err
	}
	menus, err := e.portal.Pages.FetchMenus(cmd.Context(), ownerID)
	if err != nil {
		return nil, err
	}
	draft := service.NewMenuDraft()
	draft.Populate(page, menus)
	return draft, nil
}
