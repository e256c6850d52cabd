package httpx

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Retry calls op until it succeeds, returns an error retryable rejects, the
// retry budget runs out, or ctx is done. The last error is returned as is.
func Retry(ctx context.Context, policy RetryPolicy, op func() error, retryable func(error) bool) error {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	b.MaxElapsedTime = 0

	retries := policy.MaxRetries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo, func(err error, wait time.Duration) {
		log.Printf("http retry attempt=%d wait=%s err=%v", attempt, wait.Round(time.Millisecond), err)
	})
}
