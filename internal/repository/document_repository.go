package repository

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StoredDocument is an uploaded file held by the sandbox.
type StoredDocument struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	Data       []byte
	CreatedAt  time.Time
}

// DocumentRepository stores uploaded files under generated keys.
type DocumentRepository interface {
	Put(ctx context.Context, folder string, doc *StoredDocument) error
	Get(ctx context.Context, key string) (*StoredDocument, error)
}

type documentRepository struct {
	mu   sync.RWMutex
	docs map[string]*StoredDocument
}

// NewDocumentRepository returns an in-memory implementation.
func NewDocumentRepository() DocumentRepository {
	return &documentRepository{docs: make(map[string]*StoredDocument)}
}

func (r *documentRepository) Put(_ context.Context, folder string, doc *StoredDocument) error {
	doc.StorageKey = path.Join(folder, fmt.Sprintf("%s-%s", uuid.NewString(), path.Base(doc.FileName)))
	doc.SizeBytes = int64(len(doc.Data))
	doc.CreatedAt = time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[cp.StorageKey] = &cp
	return nil
}

func (r *documentRepository) Get(_ context.Context, key string) (*StoredDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}
