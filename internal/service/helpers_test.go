package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	httptransport "github.com/spec-kit/marketplace-portal/internal/api/http"
	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/persistence"
	"github.com/spec-kit/marketplace-portal/internal/transport"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
	userPassword  = "secret-password"
)

func testConfig() config.Config {
	return config.Config{
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
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            4,
		},
	}
}

// recordedCall is what the recording doer saw on the wire.
type recordedCall struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// recordingDoer forwards to next and remembers every call. intercept may
// answer a call instead of forwarding it.
type recordingDoer struct {
	next      transport.Doer
	intercept func(*http.Request) (*http.Response, error)

	mu    sync.Mutex
	calls []recordedCall
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	d.mu.Lock()
	d.calls = append(d.calls, recordedCall{
		Method:        req.Method,
		Path:          req.URL.Path,
		Authorization: req.Header.Get("Authorization"),
		ContentType:   req.Header.Get("Content-Type"),
		Body:          body,
	})
	intercept := d.intercept
	d.mu.Unlock()

	if intercept != nil {
		if resp, err := intercept(req); resp != nil || err != nil {
			return resp, err
		}
	}
	return d.next.Do(req)
}

func (d *recordingDoer) Calls() []recordedCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recordedCall(nil), d.calls...)
}

func (d *recordingDoer) CallsTo(path string) []recordedCall {
	var out []recordedCall
	for _, c := range d.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// eventLog collects published events.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) subscribe(d events.Dispatcher, types ...events.EventType) {
	for _, t := range types {
		d.Subscribe(t, func(_ context.Context, e events.Event) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.events = append(l.events, e)
			return nil
		})
	}
}

func (l *eventLog) ofType(t events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// harness runs the sandbox backend in-process and builds portals against it.
type harness struct {
	t      *testing.T
	cfg    config.Config
	server *httptransport.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig()
	server, err := httptransport.NewServer(context.Background(), httptransport.ServerDependencies{Config: cfg})
	require.NoError(t, err)
	return &harness{t: t, cfg: cfg, server: server}
}

type client struct {
	*Portal
	doer  *recordingDoer
	store *persistence.MemorySessionStore
	log   *eventLog
}

func (h *harness) newClient() *client {
	return h.newClientWithStore(persistence.NewMemorySessionStore())
}

func (h *harness) newClientWithStore(store *persistence.MemorySessionStore) *client {
	doer := &recordingDoer{next: httptransport.InProcessDoer{App: h.server.App}}
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	log.subscribe(dispatcher,
		events.EventSessionChanged,
		events.EventRequestsReplaced,
		events.EventRequestDecided,
		events.EventRequestSubmitted,
		events.EventPageLoaded,
		events.EventPageSaved,
		events.EventMenusChanged,
		events.EventUsersLoaded,
		events.EventPagesLoaded,
	)
	portal := NewPortal(PortalDependencies{
		Config: h.cfg,
		Doer:   doer,
		Store:  store,
		Events: dispatcher,
	})
	return &client{Portal: portal, doer: doer, store: store, log: log}
}

func (h *harness) admin() *client {
	h.t.Helper()
	c := h.newClient()
	_, err := c.Sessions.Login(context.Background(), adminEmail, adminPassword)
	require.NoError(h.t, err)
	return c
}

func (h *harness) endUser(name, email string) *client {
	h.t.Helper()
	c := h.newClient()
	_, err := c.Sessions.Register(context.Background(), RegisterInput{
		Name:         name,
		Email:        email,
		Password:     userPassword,
		Confirmation: userPassword,
	})
	require.NoError(h.t, err)
	return c
}

func (h *harness) submitDocument(c *client, name string) {
	h.t.Helper()
	c.Uploads.SetDocument(domain.BytesUpload(name, "application/pdf", []byte("%PDF-1.4 " + name)))
	_, err := c.Uploads.Submit(context.Background())
	require.NoError(h.t, err)
}

// provider registers a user, has the admin approve their application and
// returns the user's client with the new role loaded.
func (h *harness) provider(name, email string) *client {
	h.t.Helper()
	ctx := context.Background()
	c := h.endUser(name, email)
	h.submitDocument(c, name+".pdf")

	admin := h.admin()
	list, err := admin.Requests.FetchRequests(ctx)
	require.NoError(h.t, err)
	var id int64
	for _, r := range list {
		if r.UserID == c.Sessions.CurrentUser().ID {
			id = r.ID
		}
	}
	require.NotZero(h.t, id)
	require.NoError(h.t, admin.Requests.Decide(ctx, id, DecisionApprove))

	user, err := c.Sessions.FetchUser(ctx)
	require.NoError(h.t, err)
	require.Equal(h.t, domain.RoleServiceOwner, user.Role)
	return c
}

// stubRequester answers Do with a function and decodes canned JSON into out.
type stubRequester struct {
	mu    sync.Mutex
	calls []transport.Request
	fn    func(ctx context.Context, req transport.Request) (string, error)
}

func (s *stubRequester) Do(ctx context.Context, req transport.Request, out any) error {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	body, err := s.fn(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || body == "" {
		return nil
	}
	return json.Unmarshal([]byte(body), out)
}

func (s *stubRequester) Calls() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Request(nil), s.calls...)
}
