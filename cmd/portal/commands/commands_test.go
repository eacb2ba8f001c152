package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sandbox "github.com/spec-kit/marketplace-portal/internal/api/http"
	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/persistence"
	"github.com/spec-kit/marketplace-portal/internal/service"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

// harness shares one sandbox and one session store across invocations, the
// way separate CLI runs share the session file.
type harness struct {
	cfg    config.Config
	server *sandbox.Server
	store  *persistence.MemorySessionStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{
			Name:              "sandbox",
			RoutePrefix:       "/api",
			SeedAdminEmail:    adminEmail,
			SeedAdminPassword: adminPassword,
		},
		API: config.APIConfig{
			BaseURL:               "http://sandbox.test/api",
			RequestTimeoutSeconds: 5,
		},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
	}
	server, err := sandbox.NewServer(context.Background(), sandbox.ServerDependencies{Config: cfg})
	require.NoError(t, err)
	return &harness{cfg: cfg, server: server, store: persistence.NewMemorySessionStore()}
}

func (h *harness) env(context.Context) (*env, error) {
	cfg := h.cfg
	return &env{
		cfg:    &cfg,
		logger: zap.NewNop(),
		portal: service.NewPortal(service.PortalDependencies{
			Config: cfg,
			Doer:   sandbox.InProcessDoer{App: h.server.App},
			Store:  h.store,
		}),
	}, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(h.env)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionSurvivesAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "login", "-e", adminEmail, "-p", adminPassword)
	require.NoError(t, err)
	assert.Contains(t, out, adminEmail)

	out, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, `"role": "admin"`)

	out, err = h.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	_, err = h.run(t, "whoami")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
}

func TestSubmitAndApproveProviderRequest(t *testing.T) {
	h := newHarness(t)
	doc := filepath.Join(t.TempDir(), "license.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF"), 0o600))

	_, err := h.run(t, "register", "-n", "Hana", "-e", "hana@example.com", "-p", "secret-password")
	require.NoError(t, err)

	_, err = h.run(t, "requests", "submit")
	assert.ErrorIs(t, err, service.ErrNoDocument)

	_, err = h.run(t, "requests", "submit", doc)
	require.NoError(t, err)

	_, err = h.run(t, "logout")
	require.NoError(t, err)
	_, err = h.run(t, "login", "-e", adminEmail, "-p", adminPassword)
	require.NoError(t, err)

	out, err := h.run(t, "requests", "list", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "pending"`)

	out, err = h.run(t, "requests", "approve", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "approved"`)

	_, err = h.run(t, "requests", "approve", "x")
	assert.EqualError(t, err, `invalid request id "x"`)
}

func TestLoginRequiresFlags(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "-e", adminEmail)
	assert.Error(t, err)
}
