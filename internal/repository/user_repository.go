package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken is returned when an account already uses the email.
var ErrEmailTaken = errors.New("email already registered")

// Account is a user plus its credential hash.
type Account struct {
	domain.User
	PasswordHash string
}

// UserRepository defines persistence access for marketplace accounts.
type UserRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
	List(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*Account
	byEmail map[string]int64
}

// NewUserRepository returns an in-memory implementation.
func NewUserRepository() UserRepository {
	return &userRepository{
		byID:    make(map[int64]*Account),
		byEmail: make(map[string]int64),
	}
}

func (r *userRepository) Create(_ context.Context, account *Account) error {
	key := strings.ToLower(strings.TrimSpace(account.Email))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[key]; exists {
		return ErrEmailTaken
	}
	r.nextID++
	now := time.Now().UTC()
	account.ID = r.nextID
	account.CreatedAt = now
	account.UpdatedAt = now
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	cp := *account
	r.byID[cp.ID] = &cp
	r.byEmail[key] = cp.ID
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) UpdateRole(_ context.Context, id int64, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	account.Role = role
	account.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.User, 0, len(r.byID))
	for _, account := range r.byID {
		result = append(result, account.User)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
