package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"twcollector/pkg/config"
	errs "twcollector/pkg/errors"
	"twcollector/pkg/logger"
	"twcollector/pkg/metrics"
	"twcollector/pkg/report"
	"twcollector/pkg/retry"
	"twcollector/pkg/storage"
	"twcollector/pkg/twitter"
	"twcollector/pkg/writer"
)

// Options control a collection run
type Options struct {
	// PostsPerAccount is the page size requested per account (max 200)
	PostsPerAccount int

	PrintFailed       bool
	PrintUnauthorized bool
	PrintErrors       bool

	// Policy bounds rate limit and network retries
	Policy *retry.Policy

	// Out receives the end-of-run lists; defaults to os.Stdout
	Out      io.Writer
	Metrics  *metrics.Recorder
	Progress Progress
	Logger   logger.Logger
}

// DefaultOptions returns the options of a plain run: 200 posts per
// account, every list printed, the default retry policy.
func DefaultOptions() Options {
	return Options{
		PostsPerAccount:   twitter.MaxPostsPerRequest,
		PrintFailed:       true,
		PrintUnauthorized: true,
		PrintErrors:       true,
		Policy:            retry.DefaultPolicy(),
		Out:               os.Stdout,
	}
}

// OptionsFromConfig builds run options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	opts.PostsPerAccount = cfg.Collection.PostsPerAccount
	opts.PrintFailed = cfg.Collection.PrintFailed
	opts.PrintUnauthorized = cfg.Collection.PrintUnauthorized
	opts.PrintErrors = cfg.Collection.PrintErrors

	rl := cfg.RateLimit
	backoff, err := retry.NewBackoff(rl.Backoff, rl.RetryDelay, rl.BackoffMultiplier, rl.MaxDelay)
	if err != nil {
		return Options{}, fmt.Errorf("invalid rate limit backoff: %w", err)
	}

	opts.Policy = &retry.Policy{
		RateLimitBackoff:    backoff,
		MaxRateLimitRetries: rl.MaxRetries,
		NetworkBackoff:      &retry.ConstantBackoff{Delay: rl.NetworkRetryDelay},
		MaxNetworkRetries:   rl.MaxNetworkRetries,
		Wait:                retry.Wait,
	}
	return opts, nil
}

// Collector walks a list of accounts, fetching each one's newest posts and
// handing them to a writer
type Collector struct {
	fetcher Fetcher
	opts    Options
	logger  logger.Logger
}

// New creates a collector reading from fetcher
func New(fetcher Fetcher, opts Options) *Collector {
	if opts.Policy == nil {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.PostsPerAccount <= 0 {
		opts.PostsPerAccount = twitter.MaxPostsPerRequest
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &Collector{
		fetcher: fetcher,
		opts:    opts,
		logger:  log,
	}
}

// Collect writes the newest posts of every account to filename in the given
// format. The output is committed when the run completes or is cancelled;
// a write failure discards it and leaves any previous file in place.
func (c *Collector) Collect(ctx context.Context, accounts []string, format writer.Format, filename string) (*Summary, error) {
	out, err := storage.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}

	w, err := writer.New(format, out)
	if err != nil {
		out.Abort()
		return nil, err
	}

	summary, runErr := c.Run(ctx, accounts, w)
	summary.Format = string(format)
	summary.Output = filename

	if runErr != nil && !isContextErr(runErr) {
		if abortErr := out.Abort(); abortErr != nil {
			c.logger.WithError(abortErr).Warn("Failed to discard output")
		}
		return summary, runErr
	}

	if err := out.Commit(); err != nil {
		return summary, errors.Join(runErr, fmt.Errorf("failed to commit output: %w", err))
	}

	c.logger.InfoWithFields("Output written", map[string]interface{}{
		"file":  filename,
		"bytes": out.Written(),
	})
	return summary, runErr
}

// Run processes accounts in order. Every account ends in exactly one
// disposition and the run continues past per-account failures. Run stops
// early only when ctx is done or w fails; the partial summary is returned
// with the error in both cases.
func (c *Collector) Run(ctx context.Context, accounts []string, w writer.BatchWriter) (*Summary, error) {
	summary := newSummary(uuid.NewString(), time.Now())
	log := c.logger.WithField("run_id", summary.RunID)

	logger.LogComponentStart(log, "collector", map[string]interface{}{
		"accounts": len(accounts),
		"limit":    c.opts.PostsPerAccount,
	})
	if c.opts.Progress != nil {
		c.opts.Progress.Start(len(accounts))
	}

	finish := func(reason string) {
		summary.FinishedAt = time.Now()
		if c.opts.Progress != nil {
			c.opts.Progress.Finish()
		}
		logger.LogComponentStop(log, "collector", reason)
	}

	for _, account := range accounts {
		result, posts, err := c.fetchAccount(ctx, log, account)
		if err != nil {
			finish("cancelled")
			return summary, err
		}

		if result.Disposition == DispositionSuccess {
			if err := w.WriteBatch(account, posts); err != nil {
				log.WithError(err).WithField("account", account).Error("Failed to write batch")
				finish("write_failed")
				return summary, fmt.Errorf("failed to write posts of %s: %w", account, err)
			}
			if c.opts.Metrics != nil {
				c.opts.Metrics.AddPosts(len(posts))
			}
		}

		summary.add(result)
		if c.opts.Metrics != nil {
			c.opts.Metrics.ObserveAccount(string(result.Disposition))
		}
		if c.opts.Progress != nil {
			c.opts.Progress.Advance(account, string(result.Disposition), result.Posts)
		}

		var resultErr error
		if result.Error != "" && c.opts.PrintErrors {
			resultErr = errors.New(result.Error)
		}
		logger.LogAccountResult(log, account, string(result.Disposition), result.Posts, resultErr)
	}

	finish("completed")

	if err := report.Print(c.opts.Out, summary.Lists(), report.PrintOptions{
		Failed:       c.opts.PrintFailed,
		Unauthorized: c.opts.PrintUnauthorized,
	}); err != nil {
		log.WithError(err).Warn("Failed to print account lists")
	}

	return summary, nil
}

// fetchAccount runs the bounded retry loop for one account. The returned
// error is non-nil only when ctx ended the attempt.
func (c *Collector) fetchAccount(ctx context.Context, log logger.Logger, account string) (AccountResult, []twitter.Post, error) {
	policy := *c.opts.Policy
	policy.Logger = log.WithField("account", account)
	policy.OmitErrors = !c.opts.PrintErrors
	policy.OnRetry = func(kind errs.Kind, attempt int, err error, delay time.Duration) {
		switch kind {
		case errs.KindRateLimited:
			logger.LogRateLimit(log, account, attempt, delay)
			if c.opts.Metrics != nil {
				c.opts.Metrics.IncRateLimitPause()
			}
		case errs.KindTransientNetwork:
			if c.opts.Metrics != nil {
				c.opts.Metrics.IncNetworkRetry()
			}
		}
	}

	posts, stats, err := retry.Do(ctx, &policy, func(ctx context.Context) ([]twitter.Post, error) {
		start := time.Now()
		posts, err := c.fetcher.FetchRecentPosts(ctx, account, c.opts.PostsPerAccount)

		if c.opts.Metrics != nil {
			outcome := "success"
			if err != nil {
				outcome = string(errs.KindOf(err))
			}
			c.opts.Metrics.ObserveFetch(outcome, time.Since(start))
		}
		if err != nil && c.opts.PrintErrors && !isContextErr(err) {
			log.WithFields(map[string]interface{}{
				"account": account,
				"kind":    string(errs.KindOf(err)),
			}).WithError(err).Warn("Fetch failed")
		}
		return posts, err
	})

	result := AccountResult{
		Account:         account,
		RateLimitPauses: stats.RateLimitPauses,
		NetworkRetries:  stats.NetworkRetries,
	}

	if err != nil && isContextErr(err) && ctx.Err() != nil {
		return result, nil, ctx.Err()
	}

	if err == nil {
		result.Disposition = DispositionSuccess
		result.Posts = len(posts)
		return result, posts, nil
	}

	result.Error = err.Error()
	result.ErrorKind = errs.KindOf(err)

	switch result.ErrorKind {
	case errs.KindUnauthorized:
		result.Disposition = DispositionUnauthorized
	case errs.KindRetryExhausted:
		result.Disposition = DispositionRetryExhausted
	default:
		result.Disposition = DispositionFailed
	}
	return result, nil, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
