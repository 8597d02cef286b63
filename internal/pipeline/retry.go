package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/plotextract/internal/catalogue"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *catalogue.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// Lookuper resolves an archive identifier to a catalogue record id.
type Lookuper interface {
	Lookup(ctx context.Context, identifier string) (*int64, error)
}

// retryLookup retries transient catalogue failures up to MaxRetries attempts.
type retryLookup struct {
	next    Lookuper
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func (r retryLookup) Lookup(ctx context.Context, identifier string) (*int64, error) {
	var lastErr error
	for attempt := range MaxRetries {
		id, err := r.next.Lookup(ctx, identifier)
		if err == nil || !IsRetryable(err) {
			return id, err
		}
		lastErr = err
		if attempt == MaxRetries-1 {
			break
		}
		r.log.Warn("retryable catalogue error", "identifier", identifier, "attempt", attempt, "error", err)
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
