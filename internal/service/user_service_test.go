package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/persistence"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// cannedDoer answers by path and remembers the Authorization headers it saw.
type cannedDoer struct {
	responses map[string]*http.Response
	auth      map[string]string
}

func (d *cannedDoer) Do(req *http.Request) (*http.Response, error) {
	if d.auth == nil {
		d.auth = map[string]string{}
	}
	d.auth[req.URL.Path] = req.Header.Get("Authorization")
	if resp, ok := d.responses[req.URL.Path]; ok {
		return resp, nil
	}
	return jsonResponse(http.StatusNotFound, `{"message":"Not Found"}`), nil
}

func TestCallsCarryBearerTokenFromSession(t *testing.T) {
	doer := &cannedDoer{responses: map[string]*http.Response{
		"/api/login":       jsonResponse(http.StatusOK, `{"user":{"id":1,"name":"Root","email":"root@example.com","role":"admin"},"token":"abc"}`),
		"/api/admin/users": jsonResponse(http.StatusOK, `[{"id":1,"role":"admin"},{"id":2,"role":"user"}]`),
	}}
	portal := NewPortal(PortalDependencies{Config: testConfig(), Doer: doer, Store: persistence.NewMemorySessionStore()})
	ctx := context.Background()

	_, err := portal.Sessions.Login(ctx, "root@example.com", "pw")
	require.NoError(t, err)
	assert.Empty(t, doer.auth["/api/login"])

	users, err := portal.Users.FetchAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "Bearer abc", doer.auth["/api/admin/users"])
}

func TestFetchProfileAndAllUsers(t *testing.T) {
	h := newHarness(t)
	h.endUser("Tess", "tess@example.com")
	admin := h.admin()
	ctx := context.Background()

	profile, err := admin.Users.FetchProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, profile.Email)
	assert.Equal(t, domain.RoleAdmin, profile.Role)

	users, err := admin.Users.FetchAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Len(t, admin.Users.State().Users, 2)

	loaded := admin.log.ofType(events.EventUsersLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, events.CollectionPayload{Count: 2}, loaded[0].Payload)

	admin.Users.ClearUsers()
	admin.Users.ClearUser()
	state := admin.Users.State()
	assert.Empty(t, state.Users)
	assert.Nil(t, state.Profile)
}

func TestFetchAllUsersForbiddenForEndUser(t *testing.T) {
	h := newHarness(t)
	c := h.endUser("Tess", "tess@example.com")

	_, err := c.Users.FetchAllUsers(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	assert.Equal(t, "This action is unauthorized.", err.Error())
	assert.Equal(t, err, c.Users.State().Err)
}
