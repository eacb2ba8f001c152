package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool when DSN is provided.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{Pool: nil}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &Postgres{Pool: pool}, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}

// PostgresSessionStore keeps the record in the client_sessions table.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
	key  string
	ttl  time.Duration
}

// NewPostgresSessionStore returns a store keyed by key. ttl <= 0 disables expiry.
func NewPostgresSessionStore(pool *pgxpool.Pool, key string, ttl time.Duration) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool, key: key, ttl: ttl}
}

func (s *PostgresSessionStore) Load(ctx context.Context) (*domain.PersistedSession, error) {
	const query = `
        SELECT payload FROM client_sessions
        WHERE session_key=$1 AND (expires_at IS NULL OR expires_at > NOW())`

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, s.key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeRecord(raw, 0, time.Now())
}

func (s *PostgresSessionStore) Save(ctx context.Context, session domain.PersistedSession) error {
	const query = `
        INSERT INTO client_sessions (session_key, payload, expires_at, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (session_key) DO UPDATE
        SET payload=EXCLUDED.payload, expires_at=EXCLUDED.expires_at, updated_at=NOW()`

	now := time.Now()
	raw, err := encodeRecord(session, now)
	if err != nil {
		return err
	}
	var expiresAt *time.Time
	if s.ttl > 0 {
		exp := now.Add(s.ttl)
		expiresAt = &exp
	}
	if _, err := s.pool.Exec(ctx, query, s.key, string(raw), expiresAt); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Clear(ctx context.Context) error {
	const query = `DELETE FROM client_sessions WHERE session_key=$1`
	if _, err := s.pool.Exec(ctx, query, s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
