package paymentclient

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy yields a fresh backoff for every operation.
type RetryPolicy func() backoff.BackOff

// ExponentialRetry waits base, 2*base, 4*base... between at most attempts tries.
func ExponentialRetry(base time.Duration, attempts int) RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	return func() backoff.BackOff {
		if attempts == 1 {
			return &backoff.StopBackOff{}
		}
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.MaxInterval = base << uint(attempts)
		b.MaxElapsedTime = 0
		b.Reset()
		return backoff.WithMaxRetries(b, uint64(attempts-1))
	}
}

// ImmediateRetry retries without waiting, for tests and interactive tools.
func ImmediateRetry(attempts int) RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	return func() backoff.BackOff {
		if attempts == 1 {
			return &backoff.StopBackOff{}
		}
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(attempts-1))
	}
}
