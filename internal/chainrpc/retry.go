package chainrpc

import (
	"context"
	"fmt"
	"time"
)

// maxRetryAttempts bounds the exponential backoff per spec §4.1/§7:
// "retried with exponential backoff up to a small bounded number of
// attempts; authentication/permission errors surface immediately".
const maxRetryAttempts = 5

const initialBackoff = 250 * time.Millisecond

// withRetry retries fn on transient failure with exponential backoff,
// short-circuiting immediately on auth errors or context cancellation.
func (a *Adapter) withRetry(ctx context.Context, fn func() error) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if IsAuthError(err) {
			return err
		}
		lastErr = err
		if attempt == maxRetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("chainrpc: exhausted %d retry attempts: %w", maxRetryAttempts, lastErr)
}
