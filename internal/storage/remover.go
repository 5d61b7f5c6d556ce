package storage

import (
	"context"
	"log/slog"
	"time"
)

// RetryRemover deletes files synchronously, retrying a bounded number of
// times with linear backoff. It is used when no task queue is available.
type RetryRemover struct {
	store    Store
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// NewRetryRemover returns a remover making three attempts.
func NewRetryRemover(store Store, logger *slog.Logger) *RetryRemover {
	return &RetryRemover{store: store, logger: logger, attempts: 3, backoff: 200 * time.Millisecond}
}

// WithBackoff overrides the base delay between attempts.
func (r *RetryRemover) WithBackoff(d time.Duration) *RetryRemover {
	r.backoff = d
	return r
}

// Remove implements Remover.
func (r *RetryRemover) Remove(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = r.store.Delete(ctx, fileName); err == nil {
			return nil
		}
		if r.logger != nil {
			r.logger.Warn("storage delete failed", slog.String("file", fileName), slog.Int("attempt", attempt), slog.Any("error", err))
		}
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
	return err
}
