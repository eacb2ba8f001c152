package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

func TestBuildDashboard(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	users := []domain.User{
		{ID: 1, Role: domain.RoleAdmin},
		{ID: 2, Role: domain.RoleUser},
		{ID: 3, Role: domain.RoleServiceOwner},
		{ID: 4, Role: domain.RoleServiceOwner},
	}
	var requests []domain.ProviderRequest
	for i := 0; i < 7; i++ {
		requests = append(requests, domain.ProviderRequest{
			ID:        int64(i + 1),
			Status:    domain.ProviderRequestPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	requests = append(requests, domain.ProviderRequest{ID: 8, Status: domain.ProviderRequestApproved, CreatedAt: base.Add(24 * time.Hour)})
	pages := []domain.ServicePage{{ID: 1}, {ID: 2}}

	d := BuildDashboard(users, requests, pages)
	assert.Equal(t, 3, d.Users)
	assert.Equal(t, 2, d.Providers)
	assert.Equal(t, 7, d.PendingRequests)
	assert.Equal(t, 2, d.Pages)
	require.Len(t, d.RecentPending, DashboardRecentLimit)
	assert.Equal(t, int64(7), d.RecentPending[0].ID)
	assert.Equal(t, int64(3), d.RecentPending[DashboardRecentLimit-1].ID)
}

func TestLoadDashboard(t *testing.T) {
	h := newHarness(t)
	owner := h.provider("Uma", "uma@example.com")
	h.submitDocument(h.endUser("Vic", "vic@example.com"), "vic.pdf")
	ctx := context.Background()
	_, err := owner.Pages.SavePage(ctx, owner.Sessions.CurrentUser().ID, SavePageInput{Content: "hi"})
	require.NoError(t, err)

	admin := h.admin()
	d, err := admin.LoadDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Users)
	assert.Equal(t, 1, d.Providers)
	assert.Equal(t, 1, d.PendingRequests)
	assert.Equal(t, 1, d.Pages)
	require.Len(t, d.RecentPending, 1)
}

func TestLoadDashboardRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	c := h.endUser("Vic", "vic@example.com")

	_, err := c.LoadDashboard(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}
