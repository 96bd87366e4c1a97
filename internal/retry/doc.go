// Package retry runs an operation repeatedly until it succeeds, fails with
// a fatal error, or runs out of attempts.
//
// The package supports pluggable error classification and backoff strategies.
// The fetcher uses it with a constant delay and a classifier that treats
// every HTTP failure alike:
//
//	strategy := retry.NewConstantBackoff(3*time.Second, 2)
//	executor := retry.NewExecutor(retry.NewFetchErrorClassifier(), strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return fetchOnce(ctx)
//	})
//
// MaxAttempts counts retries, so the operation runs at most MaxAttempts+1 times.
package retry
