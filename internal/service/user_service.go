package service

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/transport"
)

// UserState is a snapshot of the profile and the admin user list.
type UserState struct {
	Profile *domain.User
	Users   []domain.User
	Loading bool
	Err     error
}

// UserService reads the caller's profile and, for administrators, every user.
type UserService struct {
	api        Requester
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu      sync.RWMutex
	profile *domain.User
	users   []domain.User
	pending int
	err     error
}

// NewUserService builds the service.
func NewUserService(api Requester, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{api: api, dispatcher: dispatcher, logger: logger}
}

// FetchProfile loads the caller's profile.
func (s *UserService) FetchProfile(ctx context.Context) (*domain.User, error) {
	s.begin()
	var user domain.User
	if err := s.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/user"}, &user); err != nil {
		return nil, s.fail(err)
	}
	s.mu.Lock()
	s.pending--
	s.profile = &user
	s.mu.Unlock()
	return &user, nil
}

// FetchAllUsers loads every user. The backend restricts it to administrators.
func (s *UserService) FetchAllUsers(ctx context.Context) ([]domain.User, error) {
	s.begin()
	var users []domain.User
	if err := s.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/admin/users"}, &users); err != nil {
		return nil, s.fail(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	s.mu.Lock()
	s.pending--
	s.users = users
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventUsersLoaded,
		Payload: events.CollectionPayload{Count: len(users)},
	})
	return append([]domain.User(nil), users...), nil
}

// ClearUser forgets the loaded profile.
func (s *UserService) ClearUser() {
	s.mu.Lock()
	s.profile = nil
	s.err = nil
	s.mu.Unlock()
}

// ClearUsers forgets the admin user list.
func (s *UserService) ClearUsers() {
	s.mu.Lock()
	s.users = nil
	s.err = nil
	s.mu.Unlock()
}

// State returns a snapshot.
func (s *UserService) State() UserState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return UserState{
		Profile: s.profile,
		Users:   append([]domain.User(nil), s.users...),
		Loading: s.pending > 0,
		Err:     s.err,
	}
}

func (s *UserService) begin() {
	s.mu.Lock()
	s.pending++
	s.err = nil
	s.mu.Unlock()
}

func (s *UserService) fail(err error) error {
	derr := transport.Normalize(err)
	s.mu.Lock()
	s.pending--
	s.err = derr
	s.mu.Unlock()
	return derr
}
