package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TokenRefresher rotates the bearer token when it nears expiry.
// *service.SessionManager satisfies it.
type TokenRefresher interface {
	EnsureFresh(ctx context.Context) error
	Authenticated() bool
}

// RunSessionRefresher checks the session every interval until ctx is done or
// the session ends. It returns the error that ended the session, if any.
func RunSessionRefresher(ctx context.Context, sessions TokenRefresher, interval time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := sessions.EnsureFresh(ctx); err != nil {
			logger.Warn("session refresh failed", zap.Error(err))
			return err
		}
		if !sessions.Authenticated() {
			logger.Info("session ended, refresher stopping")
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
