// Package ratelimit paces requests to the Twitter API on the client side.
//
// The API grants a fixed number of timeline requests per 15 minute window
// (900 for user auth). TokenBucket models that window: it starts full,
// hands out one token per request and refills completely when the window
// has passed. Wait honours context cancellation so a collection run can be
// interrupted while it is paced.
//
// Usage:
//
//	limiter := ratelimit.NewTokenBucket(900, 15*time.Minute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// issue request
package ratelimit
