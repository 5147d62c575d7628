// Package twitter is a small client for the Twitter REST v1.1 API.
//
// It signs requests with OAuth 1.0a, paces them through an optional
// ratelimit.Limiter and turns every failure into an *errors.Error whose Kind
// tells the caller what to do next:
//
//   - HTTP 429 or API code 88: rate_limited
//   - HTTP 401 or the reason "Not authorized.": unauthorized
//   - transport failures: transient_network
//   - everything else: other
//
// Example usage:
//
//	client, err := twitter.Authenticate(ctx, creds, twitter.Options{Verify: true})
//	if err != nil {
//	    return err // setup_failure
//	}
//	posts, err := client.FetchRecentPosts(ctx, "jack", twitter.MaxPostsPerRequest)
//	switch errors.KindOf(err) {
//	case errors.KindRateLimited:
//	    // pause and retry
//	case errors.KindUnauthorized:
//	    // protected account
//	}
package twitter
