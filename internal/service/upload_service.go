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

const uploadSuccessMessage = "Upload successful!"

// UploadState is a snapshot of the provider-request submission form.
type UploadState struct {
	FileName  string
	Uploading bool
	Message   string
	Err       error
}

type messageResponse struct {
	Message string `json:"message"`
}

// UploadService submits an end user's certification document as a provider request.
// Authorization failures are surfaced to the caller and never end the session.
type UploadService struct {
	api        Requester
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu        sync.Mutex
	document  *domain.Upload
	uploading bool
	message   string
	err       error
}

// NewUploadService builds the workflow.
func NewUploadService(api Requester, dispatcher events.Dispatcher, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{api: api, dispatcher: dispatcher, logger: logger}
}

// SetDocument selects the file to submit and clears any previous outcome.
func (s *UploadService) SetDocument(doc *domain.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = doc
	s.message = ""
	s.err = nil
}

// Reset clears the selection and any outcome.
func (s *UploadService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = nil
	s.uploading = false
	s.message = ""
	s.err = nil
}

// Submit uploads the selected document. Without a document it fails with
// ErrNoDocument and nothing is sent.
func (s *UploadService) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	doc := s.document
	if doc == nil || doc.Open == nil {
		s.err = ErrNoDocument
		s.message = ""
		s.mu.Unlock()
		return "", ErrNoDocument
	}
	s.uploading = true
	s.message = ""
	s.err = nil
	s.mu.Unlock()

	var resp messageResponse
	err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/provider-requests",
		Form:   transport.NewForm().File("document", doc),
	}, &resp)

	s.mu.Lock()
	s.uploading = false
	if err != nil {
		derr := transport.Normalize(err)
		s.err = derr
		s.mu.Unlock()
		s.logger.Warn("provider request upload failed", zap.String("file", doc.FileName), zap.String("code", derr.Code))
		return "", derr
	}
	message := resp.Message
	if message == "" {
		message = uploadSuccessMessage
	}
	s.message = message
	s.document = nil
	s.mu.Unlock()

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventRequestSubmitted,
		Payload: events.RequestSubmittedPayload{FileName: doc.FileName, Message: message},
	})
	return message, nil
}

// State returns a snapshot of the form.
func (s *UploadService) State() UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := UploadState{Uploading: s.uploading, Message: s.message, Err: s.err}
	if s.document != nil {
		state.FileName = s.document.FileName
	}
	return state
}
