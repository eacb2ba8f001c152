package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// SessionStore keeps the persisted session record across restarts.
// Load returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*domain.PersistedSession, error)
	Save(ctx context.Context, session domain.PersistedSession) error
	Clear(ctx context.Context) error
}

// record is the serialized form shared by every store.
type record struct {
	State   domain.PersistedSession `json:"state"`
	Version int                     `json:"version"`
	SavedAt time.Time               `json:"saved_at"`
}

const recordVersion = 0

func encodeRecord(session domain.PersistedSession, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(record{State: session, Version: recordVersion, SavedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func decodeRecord(raw []byte, ttl time.Duration, now time.Time) (*domain.PersistedSession, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, nil
	}
	if ttl > 0 && !rec.SavedAt.IsZero() && now.After(rec.SavedAt.Add(ttl)) {
		return nil, nil
	}
	if !rec.State.Valid() {
		return nil, nil
	}
	return &rec.State, nil
}

// MemorySessionStore keeps the record in process memory.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *domain.PersistedSession
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Load(_ context.Context) (*domain.PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	cp := *s.session
	return &cp, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session domain.PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

// OpenSessionStore builds the store selected by cfg.Session.Store.
// The returned close function releases any connection the store holds.
func OpenSessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (SessionStore, func(), error) {
	noop := func() {}
	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		return NewMemorySessionStore(), noop, nil
	case config.SessionStoreFile:
		return NewFileSessionStore(cfg.Session.FilePath, cfg.Session.TTL()), noop, nil
	case config.SessionStoreRedis:
		r := NewRedis(cfg.Redis, logger)
		return NewRedisSessionStore(r.Client, cfg.Session.Key, cfg.Session.TTL()), r.Close, nil
	case config.SessionStorePostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, noop, err
		}
		if pg.PoolHandle() == nil {
			return nil, noop, fmt.Errorf("postgres session store requires POSTGRES_DSN")
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, noop, err
			}
		}
		return NewPostgresSessionStore(pg.PoolHandle(), cfg.Session.Key, cfg.Session.TTL()), pg.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
