package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// MenuRepository persists menu items per provider. Names are not unique.
type MenuRepository interface {
	Create(ctx context.Context, item *domain.MenuItem) error
	ListByUser(ctx context.Context, userID int64) ([]domain.MenuItem, error)
}

type menuRepository struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[int64][]domain.MenuItem
}

// NewMenuRepository returns an in-memory implementation.
func NewMenuRepository() MenuRepository {
	return &menuRepository{byUser: make(map[int64][]domain.MenuItem)}
}

func (r *menuRepository) Create(_ context.Context, item *domain.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	r.byUser[item.UserID] = append(r.byUser[item.UserID], *item)
	return nil
}

func (r *menuRepository) ListByUser(_ context.Context, userID int64) ([]domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.MenuItem{}, r.byUser[userID]...), nil
}
