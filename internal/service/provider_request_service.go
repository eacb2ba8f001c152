package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/transport"
)

// Decision is an administrator's verdict on a provider request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status maps the decision to the terminal status it produces.
func (d Decision) Status() (domain.ProviderRequestStatus, error) {
	switch d {
	case DecisionApprove:
		return domain.ProviderRequestApproved, nil
	case DecisionReject:
		return domain.ProviderRequestRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDecision, string(d))
	}
}

// ProviderRequestState is a snapshot of the review workflow.
type ProviderRequestState struct {
	Requests []domain.ProviderRequest
	Loading  bool
	Err      error
}

type handlePayload struct {
	Status domain.ProviderRequestStatus `json:"status"`
}

// ProviderRequestService is the administrator's read replica of provider
// requests and the only writer of it.
type ProviderRequestService struct {
	api        Requester
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu       sync.RWMutex
	requests []domain.ProviderRequest
	inFlight map[int64]struct{}
	fetchSeq uint64
	pending  int
	err      error
}

// NewProviderRequestService builds the workflow.
func NewProviderRequestService(api Requester, dispatcher events.Dispatcher, logger *zap.Logger) *ProviderRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderRequestService{
		api:        api,
		dispatcher: dispatcher,
		logger:     logger,
		inFlight:   make(map[int64]struct{}),
	}
}

// FetchRequests replaces the local collection with the backend's. Only the
// most recently issued fetch may write its result.
func (s *ProviderRequestService) FetchRequests(ctx context.Context) ([]domain.ProviderRequest, error) {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.pending++
	s.err = nil
	s.mu.Unlock()

	var list []domain.ProviderRequest
	err := s.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/admin/provider-requests"}, &list)

	s.mu.Lock()
	s.pending--
	if err != nil {
		derr := transport.Normalize(err)
		s.err = derr
		s.mu.Unlock()
		return nil, derr
	}
	if seq != s.fetchSeq {
		s.mu.Unlock()
		return cloneRequests(list), nil
	}
	if list == nil {
		list = []domain.ProviderRequest{}
	}
	s.requests = list
	pending := countPending(list)
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventRequestsReplaced,
		Payload: events.RequestsReplacedPayload{Count: len(list), Pending: pending},
	})
	return cloneRequests(list), nil
}

// Decide sends an approve or reject for one request. The local copy changes
// only after the backend accepts it, and only while it is still pending.
// A second Decide for the same id while the first is outstanding fails with
// ErrDecisionInFlight.
func (s *ProviderRequestService) Decide(ctx context.Context, id int64, decision Decision) error {
	status, err := decision.Status()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, busy := s.inFlight[id]; busy {
		s.mu.Unlock()
		return ErrDecisionInFlight
	}
	s.inFlight[id] = struct{}{}
	s.pending++
	s.err = nil
	s.mu.Unlock()

	err = s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/admin/provider-requests/%d/handle", id),
		Route:  "/admin/provider-requests/:id/handle",
		JSON:   handlePayload{Status: status},
	}, nil)

	s.mu.Lock()
	delete(s.inFlight, id)
	s.pending--
	if err != nil {
		derr := transport.Normalize(err)
		s.err = derr
		s.mu.Unlock()
		s.logger.Warn("provider request decision failed",
			zap.Int64("request_id", id),
			zap.String("status", string(status)),
			zap.String("code", derr.Code))
		return derr
	}
	applied := false
	for i := range s.requests {
		if s.requests[i].ID != id {
			continue
		}
		if s.requests[i].Status == domain.ProviderRequestPending {
			s.requests[i].Status = status
			applied = true
		}
		break
	}
	s.mu.Unlock()

	if applied {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:    events.EventRequestDecided,
			Payload: events.RequestDecidedPayload{RequestID: id, NewStatus: status},
		})
	}
	return nil
}

// Requests returns a copy of the local collection.
func (s *ProviderRequestService) Requests() []domain.ProviderRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRequests(s.requests)
}

// Get returns the local copy of one request.
func (s *ProviderRequestService) Get(id int64) (domain.ProviderRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ID == id {
			return r, true
		}
	}
	return domain.ProviderRequest{}, false
}

// PendingCount counts requests awaiting a decision.
func (s *ProviderRequestService) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countPending(s.requests)
}

// RecentPending returns up to limit pending requests, newest first.
func (s *ProviderRequestService) RecentPending(limit int) []domain.ProviderRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RecentPending(s.requests, limit)
}

// State returns a snapshot of the workflow.
func (s *ProviderRequestService) State() ProviderRequestState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ProviderRequestState{
		Requests: cloneRequests(s.requests),
		Loading:  s.pending > 0,
		Err:      s.err,
	}
}

// ClearError drops the last surfaced error.
func (s *ProviderRequestService) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// RecentPending filters requests to pending and orders them by creation time,
// newest first. Equal timestamps keep their input order. limit <= 0 keeps all.
func RecentPending(requests []domain.ProviderRequest, limit int) []domain.ProviderRequest {
	out := make([]domain.ProviderRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == domain.ProviderRequestPending {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func countPending(requests []domain.ProviderRequest) int {
	n := 0
	for _, r := range requests {
		if r.Status == domain.ProviderRequestPending {
			n++
		}
	}
	return n
}

func cloneRequests(in []domain.ProviderRequest) []domain.ProviderRequest {
	if in == nil {
		return nil
	}
	out := make([]domain.ProviderRequest, len(in))
	copy(out, in)
	return out
}
