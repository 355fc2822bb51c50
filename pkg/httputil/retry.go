package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an upstream failure worth another try: a dropped
// connection to the OneBot API, a 5xx from the translation service, an
// image host that timed out.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err wraps a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Backoff describes how often and how patiently a chat command retries an
// upstream call. The wait starts at Delay and doubles after every failed
// attempt, capped at MaxDelay when that is set.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// CommandBackoff keeps a user waiting at most a few seconds: three attempts,
// 1s then 2s apart.
var CommandBackoff = Backoff{Attempts: 3, Delay: time.Second, MaxDelay: 4 * time.Second}

// Do calls fn until it succeeds, returns an error that is not retryable, or
// the attempts run out; the last error is returned. Cancelling ctx while
// waiting returns ctx.Err().
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	delay := b.Delay
	var err error
	for i := range max(b.Attempts, 1) {
		if i > 0 {
			if werr := wait(ctx, delay); werr != nil {
				return werr
			}
			delay *= 2
			if b.MaxDelay > 0 && delay > b.MaxDelay {
				delay = b.MaxDelay
			}
		}
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs fn with an uncapped [Backoff] of attempts tries starting at
// delay.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return Backoff{Attempts: attempts, Delay: delay}.Do(ctx, fn)
}

// RetryWithBackoff runs fn with [CommandBackoff]. Image downloads and the
// integration clients use it.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return CommandBackoff.Do(ctx, fn)
}
