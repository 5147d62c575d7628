// Package collector runs the per-account collection loop.
//
// For each account, in input order, the collector fetches the newest posts,
// retries rate limits and transient network failures within the bounds of a
// retry.Policy, and hands successful batches to a writer.BatchWriter. Every
// account ends in exactly one Disposition:
//
//   - success: the batch was written
//   - unauthorized: the account is protected or the credentials cannot read it
//   - failed: any other error
//   - retry_exhausted: a retry bound was exceeded
//
// Per-account failures never stop the run. The structured Summary returned
// by Run and Collect carries the lists and counters; printing them is
// controlled by Options.
//
// Usage:
//
//	c := collector.New(client, collector.DefaultOptions())
//	summary, err := c.Collect(ctx, []string{"jack", "TwitterDev"}, writer.FormatHashtags, "tags.csv")
package collector
