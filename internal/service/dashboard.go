package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// DashboardRecentLimit is how many pending requests the dashboard lists.
const DashboardRecentLimit = 5

// Dashboard summarizes the marketplace for administrators.
type Dashboard struct {
	Users           int                      `json:"users"`
	Providers       int                      `json:"providers"`
	PendingRequests int                      `json:"pending_requests"`
	Pages           int                      `json:"pages"`
	RecentPending   []domain.ProviderRequest `json:"recent_pending"`
}

// BuildDashboard derives the summary. Administrators are not counted as users.
func BuildDashboard(users []domain.User, requests []domain.ProviderRequest, pages []domain.ServicePage) Dashboard {
	d := Dashboard{
		PendingRequests: countPending(requests),
		Pages:           len(pages),
		RecentPending:   RecentPending(requests, DashboardRecentLimit),
	}
	for i := range users {
		if users[i].Role == domain.RoleAdmin {
			continue
		}
		d.Users++
		if users[i].Role == domain.RoleServiceOwner {
			d.Providers++
		}
	}
	return d
}

// LoadDashboard fetches users, provider requests and pages in parallel and
// summarizes them.
func (p *Portal) LoadDashboard(ctx context.Context) (Dashboard, error) {
	var (
		users    []domain.User
		requests []domain.ProviderRequest
		pages    []domain.ServicePage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = p.Users.FetchAllUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		requests, err = p.Requests.FetchRequests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pages, err = p.Pages.FetchAllPagesAdmin(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(users, requests, pages), nil
}
