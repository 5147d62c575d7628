package collector

import (
	"context"

	"twcollector/pkg/twitter"
)

// Fetcher retrieves the newest posts of one account.
// Errors must carry an errors.Kind; untyped errors count as other failures.
type Fetcher interface {
	FetchRecentPosts(ctx context.Context, account string, limit int) ([]twitter.Post, error)
}

// Progress receives per-account updates while a run is in flight
type Progress interface {
	Start(total int)
	Advance(account string, disposition string, posts int)
	Finish()
}
