package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/persistence"
	"github.com/spec-kit/marketplace-portal/internal/transport"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// SessionStatus is the coarse lifecycle phase of the session.
type SessionStatus string

const (
	SessionAnonymous      SessionStatus = "anonymous"
	SessionAuthenticating SessionStatus = "authenticating"
	SessionAuthenticated  SessionStatus = "authenticated"
	SessionError          SessionStatus = "error"
)

// Reasons attached to session_changed events.
const (
	ReasonLogin      = "login"
	ReasonRegister   = "register"
	ReasonRefresh    = "refresh"
	ReasonFetchUser  = "fetch_user"
	ReasonLogout     = "logout"
	ReasonExpired    = "session_expired"
	ReasonRehydrated = "rehydrated"
)

const malformedLoginMessage = "Invalid login response. Please try again."

// SessionState is a snapshot of the session plus its transient flags.
type SessionState struct {
	Session domain.Session
	Status  SessionStatus
	Loading bool
	Err     error
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Confirmation string
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerPayload struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// SessionManager owns the authenticated identity and bearer token.
// It is the only writer of the token; the dispatcher reads it through Token.
type SessionManager struct {
	api           Requester
	store         persistence.SessionStore
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	refreshWindow time.Duration
	now           func() time.Time

	hydrateMu sync.Mutex
	hydrated  bool

	mu         sync.RWMutex
	user       *domain.User
	token      string
	generation uint64
	pending    int
	err        error
}

// SessionDependencies wires a SessionManager.
type SessionDependencies struct {
	API           Requester
	Store         persistence.SessionStore
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	RefreshWindow time.Duration
}

// NewSessionManager builds a manager. A nil store keeps the session in memory only.
func NewSessionManager(deps SessionDependencies) *SessionManager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := deps.Store
	if store == nil {
		store = persistence.NewMemorySessionStore()
	}
	return &SessionManager{
		api:           deps.API,
		store:         store,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		refreshWindow: deps.RefreshWindow,
		now:           time.Now,
	}
}

// Rehydrate loads the persisted session. It never touches the network; every
// other entry point calls it first. Once a load succeeds, or the session is
// already established, later calls do nothing. A failed load is logged and
// tried again on the next call.
func (m *SessionManager) Rehydrate(ctx context.Context) {
	if user := m.loadPersisted(ctx); user != nil {
		m.logger.Debug("session rehydrated", zap.Int64("user_id", user.ID))
		m.publish(ctx, true, user, ReasonRehydrated)
	}
}

// loadPersisted returns the restored user, or nil when nothing was restored.
func (m *SessionManager) loadPersisted(ctx context.Context) *domain.User {
	m.hydrateMu.Lock()
	defer m.hydrateMu.Unlock()
	if m.hydrated {
		return nil
	}
	m.mu.RLock()
	established := m.token != ""
	m.mu.RUnlock()
	if established {
		m.hydrated = true
		return nil
	}

	persisted, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("load persisted session", zap.Error(err))
		return nil
	}
	m.hydrated = true
	if !persisted.Valid() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" {
		return nil
	}
	m.user = persisted.User
	m.token = persisted.Token
	m.generation++
	return m.user
}

// Token returns the current bearer token, or "" when anonymous.
func (m *SessionManager) Token(ctx context.Context) string {
	m.Rehydrate(ctx)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Login exchanges credentials for an identity and token.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	m.Rehydrate(ctx)
	m.begin()

	var resp authResponse
	err := m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/login",
		JSON:   credentialsPayload{Email: email, Password: password},
	}, &resp)
	if err != nil {
		derr := transport.Normalize(err)
		if derr.Code == apperrors.CodeUnauthorized {
			derr = &apperrors.DomainError{
				Code:       apperrors.CodeInvalidCredentials,
				Message:    derr.Message,
				HTTPStatus: derr.HTTPStatus,
				Err:        derr,
			}
		}
		return nil, m.fail(derr)
	}
	return m.establish(ctx, resp, ReasonLogin)
}

// Register creates an account and signs it in.
func (m *SessionManager) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	m.Rehydrate(ctx)
	m.begin()

	var resp authResponse
	err := m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/register",
		JSON: registerPayload{
			Name:                 in.Name,
			Email:                in.Email,
			Password:             in.Password,
			PasswordConfirmation: in.Confirmation,
		},
	}, &resp)
	if err != nil {
		return nil, m.fail(transport.Normalize(err))
	}
	return m.establish(ctx, resp, ReasonRegister)
}

// FetchUser reloads the identity without touching the token. Any failure
// ends the session.
func (m *SessionManager) FetchUser(ctx context.Context) (*domain.User, error) {
	m.Rehydrate(ctx)
	gen, ok := m.beginAuthenticated()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	var resp userResponse
	err := m.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/me"}, &resp)
	if err == nil && resp.User == nil {
		err = apperrors.NewMalformedResponse("Invalid user response.", http.StatusOK)
	}
	if err != nil {
		derr := transport.Normalize(err)
		m.finish(nil)
		m.expire(ctx, gen, derr)
		return nil, derr
	}

	m.mu.Lock()
	m.pending--
	if m.generation != gen {
		m.mu.Unlock()
		return resp.User, nil
	}
	m.user = resp.User
	m.err = nil
	m.mu.Unlock()

	m.publish(ctx, true, resp.User, ReasonFetchUser)
	return resp.User, nil
}

// RefreshToken rotates the bearer token in place. Any failure ends the session.
func (m *SessionManager) RefreshToken(ctx context.Context) error {
	m.Rehydrate(ctx)
	gen, ok := m.beginAuthenticated()
	if !ok {
		return ErrNotAuthenticated
	}

	var resp tokenResponse
	err := m.api.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/refresh"}, &resp)
	if err == nil && resp.Token == "" {
		err = apperrors.NewMalformedResponse("Invalid refresh response.", http.StatusOK)
	}
	if err != nil {
		derr := transport.Normalize(err)
		m.finish(nil)
		m.expire(ctx, gen, derr)
		return derr
	}

	m.mu.Lock()
	m.pending--
	if m.generation != gen {
		m.mu.Unlock()
		return nil
	}
	m.token = resp.Token
	m.generation++
	m.err = nil
	user := m.user
	m.mu.Unlock()

	m.persist(ctx, domain.PersistedSession{Token: resp.Token, User: user})
	m.publish(ctx, true, user, ReasonRefresh)
	return nil
}

// EnsureFresh refreshes a JWT bearer token that expires within the refresh
// window. Opaque tokens and anonymous sessions are left alone.
func (m *SessionManager) EnsureFresh(ctx context.Context) error {
	token := m.Token(ctx)
	if token == "" || m.refreshWindow <= 0 {
		return nil
	}
	exp, ok := transport.TokenExpiry(token)
	if !ok {
		return nil
	}
	if m.now().Add(m.refreshWindow).Before(exp) {
		return nil
	}
	return m.RefreshToken(ctx)
}

// Logout notifies the backend and clears the session. The notification is
// best effort. Calling Logout while anonymous does nothing.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.Rehydrate(ctx)
	return m.logout(ctx, ReasonLogout)
}

func (m *SessionManager) logout(ctx context.Context, reason string) error {
	m.mu.RLock()
	anonymous := m.token == "" && m.user == nil
	m.mu.RUnlock()
	if anonymous {
		return nil
	}

	if err := m.api.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/logout"}, nil); err != nil {
		m.logger.Warn("logout notification failed", zap.String("reason", reason), zap.Error(err))
	}

	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.generation++
	if reason == ReasonLogout {
		m.err = nil
	}
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("clear persisted session", zap.Error(err))
	}
	m.publish(ctx, false, nil, reason)
	return nil
}

// expire tears the session down after a failed session-bound call, unless the
// session already changed while the call was in flight.
func (m *SessionManager) expire(ctx context.Context, gen uint64, cause error) {
	m.mu.RLock()
	stale := m.generation != gen
	m.mu.RUnlock()
	if stale {
		return
	}
	m.logger.Info("session invalidated", zap.Error(cause))
	_ = m.logout(ctx, ReasonExpired)
}

// State returns a snapshot of the session.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session := domain.Session{User: m.user, Token: m.token}
	state := SessionState{Session: session, Loading: m.pending > 0, Err: m.err}
	switch {
	case state.Loading:
		state.Status = SessionAuthenticating
	case session.Authenticated():
		state.Status = SessionAuthenticated
	case m.err != nil:
		state.Status = SessionError
	default:
		state.Status = SessionAnonymous
	}
	return state
}

// Session returns the identity and token.
func (m *SessionManager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Session{User: m.user, Token: m.token}
}

// CurrentUser returns the signed-in user, or nil.
func (m *SessionManager) CurrentUser() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Authenticated reports whether identity and token are both held.
func (m *SessionManager) Authenticated() bool {
	return m.Session().Authenticated()
}

// ClearError drops the last surfaced error.
func (m *SessionManager) ClearError() {
	m.mu.Lock()
	m.err = nil
	m.mu.Unlock()
}

func (m *SessionManager) begin() {
	m.mu.Lock()
	m.pending++
	m.err = nil
	m.mu.Unlock()
}

func (m *SessionManager) beginAuthenticated() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return 0, false
	}
	m.pending++
	m.err = nil
	return m.generation, true
}

func (m *SessionManager) finish(err error) {
	m.mu.Lock()
	m.pending--
	if err != nil {
		m.err = err
	}
	m.mu.Unlock()
}

func (m *SessionManager) fail(err *apperrors.DomainError) error {
	m.finish(err)
	return err
}

func (m *SessionManager) establish(ctx context.Context, resp authResponse, reason string) (*domain.User, error) {
	if resp.User == nil || resp.Token == "" {
		return nil, m.fail(apperrors.ToDomainError(
			apperrors.NewMalformedResponse(malformedLoginMessage, http.StatusOK)))
	}

	m.mu.Lock()
	m.pending--
	m.user = resp.User
	m.token = resp.Token
	m.generation++
	m.err = nil
	m.mu.Unlock()

	m.persist(ctx, domain.PersistedSession{Token: resp.Token, User: resp.User})
	m.publish(ctx, true, resp.User, reason)
	return resp.User, nil
}

func (m *SessionManager) persist(ctx context.Context, session domain.PersistedSession) {
	if err := m.store.Save(ctx, session); err != nil {
		m.logger.Error("persist session", zap.Error(err))
	}
}

func (m *SessionManager) publish(ctx context.Context, authenticated bool, user *domain.User, reason string) {
	publishEvent(ctx, m.dispatcher, events.Event{
		Type: events.EventSessionChanged,
		Payload: events.SessionChangedPayload{
			Authenticated: authenticated,
			User:          user,
			Reason:        reason,
		},
	})
}
