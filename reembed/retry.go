// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so a retry loop returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Backoff is an exponential retry schedule.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration // 0 means no cap
}

// Delay returns the wait after failed attempt n (1-based): BaseDelay
// doubled n-1 times, capped at MaxDelay.
func (b Backoff) Delay(n int) time.Duration {
	d := b.BaseDelay
	for i := 1; i < n; i++ {
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			break
		}
		d *= 2
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d
}

// Retry runs op until it succeeds, returns a Permanent error, the attempts
// run out or ctx is done. The last error is returned; Permanent errors are
// returned unwrapped.
func (b Backoff) Retry(ctx context.Context, op func() error) error {
	if b.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for n := 1; ; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = op(); err == nil {
			if n > 1 {
				slog.Debug("retry succeeded", "attempt", n)
			}
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		if n >= b.MaxAttempts {
			return err
		}

		wait := b.Delay(n)
		slog.Debug("attempt failed, retrying", "attempt", n, "max_attempts", b.MaxAttempts, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff runs operation up to maxAttempts times, waiting baseDelay
// after the first failure and doubling the wait after each later one.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	return Backoff{MaxAttempts: maxAttempts, BaseDelay: baseDelay}.Retry(ctx, operation)
}
