package clientledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retry policy for transient write conflicts: one initial attempt plus up to
// three retries, delayed 100ms, 200ms, 400ms. Only ErrWriteConflict is
// retried; every other error propagates unchanged on the first occurrence.
const (
	conflictRetries      = 3
	conflictBaseInterval = 100 * time.Millisecond
)

// RetryOnConflict executes fn, re-executing it on transient write conflicts
// with strict exponential backoff. After the retries are exhausted the last
// conflict error is returned.
func RetryOnConflict(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = conflictBaseInterval
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = conflictBaseInterval << conflictRetries

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := fn(); err != nil {
			if IsConflict(err) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(conflictRetries+1),
	)
	return err
}
