package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/transport"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// SavePageInput is the page form. Nil Logo or Banner means unchanged.
// Menu items that already carry an ID are not created again. SavePage writes
// each created item back into Menu, so retrying a failed save with the same
// input does not create those items twice.
type SavePageInput struct {
	Content string
	Menu    []domain.MenuItem
	Logo    *domain.Upload
	Banner  *domain.Upload
}

// ServicePageState is a snapshot of the provider's page workflow.
type ServicePageState struct {
	Page    *domain.ServicePage
	Menus   []domain.MenuItem
	Pages   []domain.ServicePage
	Loading bool
	Success bool
	Err     error
}

type menuPayload struct {
	Name string `json:"name"`
}

// ServicePageService loads and saves a provider's service page and its menu.
//
// SavePage is best effort: menu items are created before the page is written
// and are never rolled back, so a failed save may leave new items visible on
// the next menu fetch.
type ServicePageService struct {
	api             Requester
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	menuConcurrency int

	mu      sync.RWMutex
	page    *domain.ServicePage
	menus   []domain.MenuItem
	pages   []domain.ServicePage
	pending int
	success bool
	err     error
}

// NewServicePageService builds the workflow. menuConcurrency caps parallel
// menu creation; zero or less means unbounded.
func NewServicePageService(api Requester, dispatcher events.Dispatcher, logger *zap.Logger, menuConcurrency int) *ServicePageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServicePageService{
		api:             api,
		dispatcher:      dispatcher,
		logger:          logger,
		menuConcurrency: menuConcurrency,
	}
}

// FetchServicePage loads the caller's page. A missing page is not an error:
// it yields (nil, nil) and clears the local page.
func (s *ServicePageService) FetchServicePage(ctx context.Context) (*domain.ServicePage, error) {
	s.begin()

	var page domain.ServicePage
	err := s.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/service-page"}, &page)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, s.fail(err)
	}

	var loaded *domain.ServicePage
	if err == nil {
		loaded = &page
	}
	s.mu.Lock()
	s.pending--
	s.page = loaded
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventPageLoaded,
		Payload: events.PagePayload{Page: loaded},
	})
	return loaded, nil
}

// FetchMenus replaces the local menu collection with the owner's menus.
func (s *ServicePageService) FetchMenus(ctx context.Context, ownerID int64) ([]domain.MenuItem, error) {
	s.begin()

	var menus []domain.MenuItem
	err := s.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/service-page/users/%d/menus", ownerID),
		Route:  "/service-page/users/:owner/menus",
	}, &menus)
	if err != nil {
		return nil, s.fail(err)
	}
	if menus == nil {
		menus = []domain.MenuItem{}
	}

	s.mu.Lock()
	s.pending--
	s.menus = menus
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventMenusChanged,
		Payload: events.MenusChangedPayload{OwnerID: ownerID, Count: len(menus)},
	})
	return append([]domain.MenuItem(nil), menus...), nil
}

// CreateMenu creates one menu item for the owner and appends it locally.
func (s *ServicePageService) CreateMenu(ctx context.Context, ownerID int64, name string) (*domain.MenuItem, error) {
	s.begin()
	item, err := s.createMenu(ctx, ownerID, name)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.pending--
	s.menus = append(s.menus, *item)
	count := len(s.menus)
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventMenusChanged,
		Payload: events.MenusChangedPayload{OwnerID: ownerID, Count: count},
	})
	return item, nil
}

// FetchAllPagesAdmin loads every provider's page.
func (s *ServicePageService) FetchAllPagesAdmin(ctx context.Context) ([]domain.ServicePage, error) {
	s.begin()

	var pages []domain.ServicePage
	err := s.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/admin/service-pages"}, &pages)
	if err != nil {
		return nil, s.fail(err)
	}
	if pages == nil {
		pages = []domain.ServicePage{}
	}

	s.mu.Lock()
	s.pending--
	s.pages = pages
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventPagesLoaded,
		Payload: events.CollectionPayload{Count: len(pages)},
	})
	return append([]domain.ServicePage(nil), pages...), nil
}

// SavePage creates the new menu items concurrently, waits for every one of
// them to settle, then writes the page as multipart. If any item fails the
// first error is returned and the page is not written. Items already created
// stay on the backend either way.
func (s *ServicePageService) SavePage(ctx context.Context, ownerID int64, in SavePageInput) (*domain.ServicePage, error) {
	s.mu.Lock()
	s.pending++
	s.success = false
	s.err = nil
	s.mu.Unlock()

	created, menuErr := s.createMenus(ctx, ownerID, in.Menu)
	if len(created) > 0 {
		s.mu.Lock()
		s.menus = append(s.menus, created...)
		count := len(s.menus)
		s.mu.Unlock()
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:    events.EventMenusChanged,
			Payload: events.MenusChangedPayload{OwnerID: ownerID, Count: count},
		})
	}
	if menuErr != nil {
		s.logger.Warn("menu creation failed, page not saved",
			zap.Int64("owner_id", ownerID),
			zap.Int("created", len(created)),
			zap.Error(menuErr))
		return nil, s.fail(menuErr)
	}

	form := transport.NewForm().
		Field("content", in.Content).
		File("logo", in.Logo).
		File("banner", in.Banner)

	var page domain.ServicePage
	err := s.api.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/service-page", Form: form}, &page)
	if err != nil {
		if len(created) > 0 {
			s.logger.Warn("page save failed after menu creation",
				zap.Int64("owner_id", ownerID),
				zap.Int("created", len(created)),
				zap.Error(err))
		}
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.pending--
	s.page = &page
	s.success = true
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventPageSaved,
		Payload: events.PagePayload{Page: &page},
	})
	return &page, nil
}

// createMenus runs one create call per unpersisted item and returns the items
// that were created, in input order, alongside the first failure. Created items
// replace their entries in items.
func (s *ServicePageService) createMenus(ctx context.Context, ownerID int64, items []domain.MenuItem) ([]domain.MenuItem, error) {
	results := make([]*domain.MenuItem, len(items))

	var g errgroup.Group
	if s.menuConcurrency > 0 {
		g.SetLimit(s.menuConcurrency)
	}
	for i, item := range items {
		if item.Persisted() {
			continue
		}
		i, item := i, item
		g.Go(func() error {
			created, err := s.createMenu(ctx, ownerID, item.Name)
			if err != nil {
				return err
			}
			results[i] = created
			return nil
		})
	}
	err := g.Wait()

	created := make([]domain.MenuItem, 0, len(items))
	for i, r := range results {
		if r != nil {
			items[i] = *r
			created = append(created, *r)
		}
	}
	return created, err
}

func (s *ServicePageService) createMenu(ctx context.Context, ownerID int64, name string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/service-page/%d/menus", ownerID),
		Route:  "/service-page/:owner/menus",
		JSON:   menuPayload{Name: name},
	}, &item)
	if err != nil {
		return nil, err
	}
	if item.Name == "" {
		item.Name = name
	}
	return &item, nil
}

// EffectiveMenu returns the fetched menu collection when it is non-empty and
// the page's embedded menu otherwise.
func (s *ServicePageService) EffectiveMenu() []domain.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.menus) > 0 {
		return append([]domain.MenuItem(nil), s.menus...)
	}
	if s.page != nil {
		return append([]domain.MenuItem(nil), s.page.Menu...)
	}
	return nil
}

// Page returns the loaded page, or nil.
func (s *ServicePageService) Page() *domain.ServicePage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Menus returns the fetched menu collection.
func (s *ServicePageService) Menus() []domain.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MenuItem(nil), s.menus...)
}

// ResetStatus clears the transient error and success flag.
func (s *ServicePageService) ResetStatus() {
	s.mu.Lock()
	s.success = false
	s.err = nil
	s.mu.Unlock()
}

// State returns a snapshot of the workflow.
func (s *ServicePageService) State() ServicePageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ServicePageState{
		Page:    s.page,
		Menus:   append([]domain.MenuItem(nil), s.menus...),
		Pages:   append([]domain.ServicePage(nil), s.pages...),
		Loading: s.pending > 0,
		Success: s.success,
		Err:     s.err,
	}
}

func (s *ServicePageService) begin() {
	s.mu.Lock()
	s.pending++
	s.err = nil
	s.mu.Unlock()
}

func (s *ServicePageService) fail(err error) error {
	derr := transport.Normalize(err)
	s.mu.Lock()
	s.pending--
	s.err = derr
	s.mu.Unlock()
	return derr
}
