// Package retry provides the single retry combinator shared by remote connection
// establishment and device acquisition.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy bounds a retry loop. Delay is fixed between attempts.
type Policy struct {
	MaxAttempts uint
	Delay       time.Duration

	// RetryIf decides whether an error is worth another attempt. Nil retries every error.
	RetryIf func(error) bool

	// OnFailure is called after every failed attempt with its 1-based index,
	// including the last one.
	OnFailure func(attempt uint, err error)
}

// Once is the policy for operations that must never be retried.
var Once = Policy{MaxAttempts: 1}

// Do runs fn until it succeeds, the policy is exhausted, RetryIf rejects an error
// or ctx is done. On failure it returns the last error fn produced (or the
// context error when cancelled while waiting) and the number of attempts made.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, uint, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		// retry-go treats zero as unlimited
		attempts = 1
	}

	var made uint
	result, err := retrygo.DoWithData(
		func() (T, error) {
			made++
			v, err := fn(ctx)
			if err != nil && p.OnFailure != nil {
				p.OnFailure(made, err)
			}
			return v, err
		},
		retrygo.Attempts(attempts),
		retrygo.Delay(p.Delay),
		retrygo.DelayType(retrygo.FixedDelay),
		retrygo.Context(ctx),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			if p.RetryIf == nil {
				return true
			}
			return p.RetryIf(err)
		}),
	)

	return result, made, err
}
