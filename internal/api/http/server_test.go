package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-portal/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-portal/internal/config"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, health map[string]handlers.Pinger) *Server {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{
			Name:              "sandbox",
			Version:           "test",
			RoutePrefix:       "/api",
			SeedAdminEmail:    adminEmail,
			SeedAdminPassword: adminPassword,
		},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
	}
	server, err := NewServer(context.Background(), ServerDependencies{
		Config:     cfg,
		Registry:   prometheus.NewRegistry(),
		HealthDeps: health,
	})
	require.NoError(t, err)
	return server
}

func call(t *testing.T, s *Server, method, path, token string, body any) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func login(t *testing.T, s *Server, email, password string) string {
	t.Helper()
	status, body := call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, body)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp.Token
}

func register(t *testing.T, s *Server, name, email string) string {
	t.Helper()
	status, body := call(t, s, http.MethodPost, "/api/register", "", map[string]string{
		"name": name, "email": email, "password": "secret-password", "password_confirmation": "secret-password",
	})
	require.Equal(t, http.StatusCreated, status, body)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp.Token
}

func submit(t *testing.T, s *Server, token string) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("--b\r\nContent-Disposition: form-data; name=\"document\"; filename=\"c.pdf\"\r\nContent-Type: application/pdf\r\n\r\n%PDF\r\n--b--\r\n")
	req := httptest.NewRequest(http.MethodPost, "/api/provider-requests", &buf)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": adminEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)

	status, body = call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": "ghost@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, body)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := call(t, s, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"Unauthenticated."}`, body)

	status, _ = call(t, s, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidationBody(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := call(t, s, http.MethodPost, "/api/register", "", map[string]string{
		"name": "", "email": "bad", "password": "secret-password", "password_confirmation": "other",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t,
		`{"message":"The name field is required.","errors":{"name":["The name field is required."],"email":["The email field must be a valid email address."],"password_confirmation":["The password confirmation field must match password."]}}`,
		body)
}

func TestMeAndLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t, nil)
	token := register(t, s, "Dana", "dana@example.com")

	status, body := call(t, s, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"email":"dana@example.com"`)
	assert.Contains(t, body, `"role":"user"`)

	status, body = call(t, s, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Successfully logged out"}`, body)

	status, _ = call(t, s, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRotatesToken(t *testing.T) {
	s := newTestServer(t, nil)
	token := login(t, s, adminEmail, adminPassword)

	status, body := call(t, s, http.MethodPost, "/api/refresh", token, nil)
	require.Equal(t, http.StatusOK, status)
	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.NotEqual(t, token, resp.Token)
	assert.Equal(t, "bearer", resp.TokenType)

	status, _ = call(t, s, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, s, http.MethodGet, "/api/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminRoutesForbidEndUsers(t *testing.T) {
	s := newTestServer(t, nil)
	token := register(t, s, "Eli", "eli@example.com")

	for _, path := range []string{"/api/admin/users", "/api/admin/provider-requests", "/api/admin/service-pages"} {
		status, body := call(t, s, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, status, path)
		assert.JSONEq(t, `{"message":"This action is unauthorized."}`, body, path)
	}
}

func TestHandleProviderRequest(t *testing.T) {
	s := newTestServer(t, nil)
	userToken := register(t, s, "Fay", "fay@example.com")
	submit(t, s, userToken)
	admin := login(t, s, adminEmail, adminPassword)

	status, body := call(t, s, http.MethodGet, "/api/admin/provider-requests", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Data []struct {
			ID       int64  `json:"id"`
			Status   string `json:"status"`
			Document string `json:"document"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "pending", list.Data[0].Status)
	doc, err := s.Repos.Documents.Get(context.Background(), list.Data[0].Document)
	require.NoError(t, err)
	assert.Equal(t, "c.pdf", doc.FileName)
	assert.Equal(t, []byte("%PDF"), doc.Data)
	path := "/api/admin/provider-requests/" + strconv.FormatInt(list.Data[0].ID, 10) + "/handle"

	status, body = call(t, s, http.MethodPost, path, admin, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "The selected status is invalid.")

	status, _ = call(t, s, http.MethodPost, path, admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, s, http.MethodPost, path, admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusOK, status, "repeating the decision is idempotent")

	status, body = call(t, s, http.MethodPost, path, admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Provider request has already been handled.")

	status, body = call(t, s, http.MethodGet, "/api/user", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"role":"service_owner"`)

	status, _ = call(t, s, http.MethodPost, "/api/admin/provider-requests/999/handle", admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServicePageRequiresOwnerRole(t *testing.T) {
	s := newTestServer(t, nil)
	token := register(t, s, "Gus", "gus@example.com")

	status, _ := call(t, s, http.MethodGet, "/api/service-page", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	req := httptest.NewRequest(http.MethodPost, "/api/service-page", strings.NewReader("--b\r\nContent-Disposition: form-data; name=\"content\"\r\n\r\nhi\r\n--b--\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := call(t, s, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, `"message"`)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Pinger{"store": fakePinger{}})

	status, body := call(t, s, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"alive"`)

	status, _ = call(t, s, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	login(t, s, adminEmail, adminPassword)
	status, body = call(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# TYPE")

	down := newTestServer(t, map[string]handlers.Pinger{"store": fakePinger{err: errors.New("connection refused")}})
	status, body = call(t, down, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "connection refused")
}

func TestSubmitRejectsEmptyDocument(t *testing.T) {
	s := newTestServer(t, nil)
	token := register(t, s, "Hal", "hal@example.com")

	body := "--b\r\nContent-Disposition: form-data; name=\"document\"; filename=\"c.pdf\"\r\nContent-Type: application/pdf\r\n\r\n\r\n--b--\r\n"
	req := httptest.NewRequest(http.MethodPost, "/api/provider-requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(raw), "The document field is required.")
}
