// Package retry drives bounded retries of timeline fetches.
//
// Only two error kinds are retried: rate limits and transient network
// failures. Each has its own backoff strategy and its own retry bound, and
// running past a bound ends the operation with a retry_exhausted error
// instead of looping forever.
//
// Basic usage:
//
//	policy := retry.DefaultPolicy()
//	posts, stats, err := retry.Do(ctx, policy, func(ctx context.Context) ([]twitter.Post, error) {
//		return client.FetchRecentPosts(ctx, account, 200)
//	})
//
// Backoff strategies:
//   - ConstantBackoff: same pause every time (the 20 second rate limit pause)
//   - LinearBackoff: pause grows by a fixed increment
//   - ExponentialBackoff: pause grows geometrically, with optional jitter
//
// Policy.Wait can be replaced in tests to record pauses without sleeping.
package retry
