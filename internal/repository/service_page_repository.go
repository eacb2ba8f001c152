package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// ServicePageRepository persists one page per provider.
type ServicePageRepository interface {
	GetByUser(ctx context.Context, userID int64) (*domain.ServicePage, error)
	Upsert(ctx context.Context, page *domain.ServicePage) error
	List(ctx context.Context) ([]domain.ServicePage, error)
}

type servicePageRepository struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[int64]*domain.ServicePage
}

// NewServicePageRepository returns an in-memory implementation.
func NewServicePageRepository() ServicePageRepository {
	return &servicePageRepository{byUser: make(map[int64]*domain.ServicePage)}
}

func (r *servicePageRepository) GetByUser(_ context.Context, userID int64) (*domain.ServicePage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page, ok := r.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *page
	return &cp, nil
}

// Upsert creates the user's page or replaces its content in place. Empty Logo
// or Banner keep the stored value.
func (r *servicePageRepository) Upsert(_ context.Context, page *domain.ServicePage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := r.byUser[page.UserID]
	if !ok {
		r.nextID++
		page.ID = r.nextID
		page.CreatedAt = now
		page.UpdatedAt = now
		cp := *page
		cp.Menu = nil
		r.byUser[page.UserID] = &cp
		return nil
	}
	existing.Content = page.Content
	if page.Logo != "" {
		existing.Logo = page.Logo
	}
	if page.Banner != "" {
		existing.Banner = page.Banner
	}
	existing.UpdatedAt = now
	*page = *existing
	return nil
}

func (r *servicePageRepository) List(_ context.Context) ([]domain.ServicePage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.ServicePage, 0, len(r.byUser))
	for _, page := range r.byUser {
		result = append(result, *page)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
