package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// ProviderRequestRepository persists provider applications.
type ProviderRequestRepository interface {
	Create(ctx context.Context, request *domain.ProviderRequest) error
	GetByID(ctx context.Context, id int64) (*domain.ProviderRequest, error)
	List(ctx context.Context) ([]domain.ProviderRequest, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ProviderRequestStatus) (*domain.ProviderRequest, error)
}

type providerRequestRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*domain.ProviderRequest
	now    func() time.Time
}

// NewProviderRequestRepository returns an in-memory implementation.
func NewProviderRequestRepository() ProviderRequestRepository {
	return &providerRequestRepository{
		items: make(map[int64]*domain.ProviderRequest),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *providerRequestRepository) Create(_ context.Context, request *domain.ProviderRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := r.now()
	request.ID = r.nextID
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = domain.ProviderRequestPending
	}
	cp := *request
	r.items[cp.ID] = &cp
	return nil
}

func (r *providerRequestRepository) GetByID(_ context.Context, id int64) (*domain.ProviderRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

// List returns requests newest first.
func (r *providerRequestRepository) List(_ context.Context) ([]domain.ProviderRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.ProviderRequest, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *providerRequestRepository) UpdateStatus(_ context.Context, id int64, status domain.ProviderRequestStatus) (*domain.ProviderRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	item.Status = status
	item.UpdatedAt = r.now()
	cp := *item
	return &cp, nil
}
