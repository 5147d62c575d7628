package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twcollector/pkg/config"
	errs "twcollector/pkg/errors"
	"twcollector/pkg/logger"
	"twcollector/pkg/metrics"
	"twcollector/pkg/retry"
	"twcollector/pkg/twitter"
	"twcollector/pkg/writer"
)

// fakeFetcher replays a script of responses per account; the last entry repeats
type fakeFetcher struct {
	mu      sync.Mutex
	scripts map[string][]response
	calls   map[string]int
	order   []string
}

type response struct {
	posts []twitter.Post
	err   error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{scripts: map[string][]response{}, calls: map[string]int{}}
}

func (f *fakeFetcher) on(account string, responses ...response) *fakeFetcher {
	f.scripts[account] = responses
	return f
}

func (f *fakeFetcher) FetchRecentPosts(ctx context.Context, account string, limit int) ([]twitter.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.order = append(f.order, account)
	script, ok := f.scripts[account]
	if !ok {
		return nil, errs.New(errs.KindOther, 34, "Sorry, that page does not exist.")
	}
	i := f.calls[account]
	f.calls[account]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i].posts, script[i].err
}

func post(t *testing.T, id int, tags ...string) twitter.Post {
	t.Helper()
	hashtags := make([]map[string]string, 0, len(tags))
	for _, tag := range tags {
		hashtags = append(hashtags, map[string]string{"text": tag})
	}
	raw, err := json.Marshal(map[string]interface{}{
		"id":        id,
		"full_text": "post",
		"entities":  map[string]interface{}{"hashtags": hashtags},
	})
	require.NoError(t, err)

	var p twitter.Post
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func ok(posts ...twitter.Post) response { return response{posts: posts} }

func fail(kind errs.Kind, msg string) response {
	return response{err: errs.New(kind, 0, "%s", msg)}
}

type pauseRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *pauseRecorder) wait(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.pauses = append(r.pauses, d)
	r.mu.Unlock()
	return ctx.Err()
}

func testOptions(out *bytes.Buffer, rec *pauseRecorder) Options {
	opts := DefaultOptions()
	opts.Out = out
	opts.Logger = logger.NewNopLogger()
	opts.Policy = retry.DefaultPolicy()
	opts.Policy.Wait = rec.wait
	return opts
}

func TestCollectHashtagsEndToEnd(t *testing.T) {
	fetcher := newFakeFetcher().
		on("alice", ok(post(t, 1, "x"), post(t, 2, "y", "x"))).
		on("bob", fail(errs.KindUnauthorized, "Not authorized."))

	var out bytes.Buffer
	rec := &pauseRecorder{}
	c := New(fetcher, testOptions(&out, rec))

	filename := filepath.Join(t.TempDir(), "tags.csv")
	summary, err := c.Collect(context.Background(), []string{"alice", "bob"}, writer.FormatHashtags, filename)
	require.NoError(t, err)

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "alice,\"[\"\"x\"\",\"\"y\"\",\"\"x\"\"]\"\n", string(data))

	assert.Equal(t, []string{"alice"}, summary.Succeeded)
	assert.Equal(t, []string{"bob"}, summary.Unauthorized)
	assert.Equal(t, []string{}, summary.Failed)
	assert.Equal(t, 2, summary.PostsWritten)
	assert.Equal(t, "hashtags", summary.Format)
	assert.Equal(t, filename, summary.Output)
	assert.False(t, summary.AllSucceeded())

	assert.Equal(t, "Failed (0): none\nUnauthorized (1): bob\n", out.String())
}

func TestCollectJSONWritesRawLinesInOrder(t *testing.T) {
	alice := []twitter.Post{post(t, 3), post(t, 2), post(t, 1)}
	carol := []twitter.Post{post(t, 9, "go")}
	fetcher := newFakeFetcher().
		on("alice", ok(alice...)).
		on("carol", ok(carol...))

	var out bytes.Buffer
	c := New(fetcher, testOptions(&out, &pauseRecorder{}))

	filename := filepath.Join(t.TempDir(), "timelines.jsonl")
	summary, err := c.Collect(context.Background(), []string{"alice", "carol"}, writer.FormatJSON, filename)
	require.NoError(t, err)
	assert.True(t, summary.AllSucceeded())

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)

	want := append(append([]twitter.Post{}, alice...), carol...)
	for i, p := range want {
		assert.Equal(t, string(p.Raw), lines[i])
	}
}

func TestRunRateLimitedThenSuccess(t *testing.T) {
	fetcher := newFakeFetcher().on("alice",
		fail(errs.KindRateLimited, "Rate limit exceeded"),
		fail(errs.KindRateLimited, "Rate limit exceeded"),
		ok(post(t, 1, "x")),
	)

	var out, buf bytes.Buffer
	rec := &pauseRecorder{}
	c := New(fetcher, testOptions(&out, rec))

	summary, err := c.Run(context.Background(), []string{"alice"}, writer.NewRecordDump(&buf))
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{20 * time.Second, 20 * time.Second}, rec.pauses)
	assert.Equal(t, 3, fetcher.calls["alice"])
	assert.Equal(t, []string{"alice"}, summary.Succeeded)
	assert.Equal(t, 2, summary.RateLimitPauses)
	assert.Equal(t, 2, summary.Results[0].RateLimitPauses)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestRunClassification(t *testing.T) {
	fetcher := newFakeFetcher().
		on("protected", fail(twitter.ClassifyReason("Not authorized."), "Not authorized.")).
		on("flaky",
			fail(twitter.ClassifyReason("Failed ot send request, try again"), "Failed ot send request, try again"),
			ok(post(t, 1)),
		).
		on("odd", fail(twitter.ClassifyReason("Some other platform error"), "Some other platform error")).
		on("plain", response{err: errors.New("untyped")})

	var out bytes.Buffer
	rec := &pauseRecorder{}
	c := New(fetcher, testOptions(&out, rec))

	accounts := []string{"protected", "flaky", "odd", "plain"}
	summary, err := c.Run(context.Background(), accounts, writer.NewRecordDump(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"protected"}, summary.Unauthorized)
	assert.Equal(t, []string{"flaky"}, summary.Succeeded)
	assert.Equal(t, []string{"odd", "plain"}, summary.Failed)
	assert.Equal(t, 2, fetcher.calls["flaky"])
	assert.Equal(t, 1, summary.NetworkRetries)
	assert.Equal(t, []time.Duration{0}, rec.pauses, "network retries do not pause")

	require.Len(t, summary.Results, 4)
	for i, account := range accounts {
		assert.Equal(t, account, summary.Results[i].Account)
	}
	assert.Equal(t, errs.KindUnauthorized, summary.Results[0].ErrorKind)
	assert.Equal(t, errs.KindOther, summary.Results[3].ErrorKind)
}

func TestRunRetryExhausted(t *testing.T) {
	fetcher := newFakeFetcher().
		on("stuck", fail(errs.KindRateLimited, "Rate limit exceeded")).
		on("offline", fail(errs.KindTransientNetwork, "Failed to send request")).
		on("alice", ok(post(t, 1)))

	var out bytes.Buffer
	rec := &pauseRecorder{}
	opts := testOptions(&out, rec)
	opts.Policy.MaxRateLimitRetries = 3
	opts.Policy.MaxNetworkRetries = 2
	c := New(fetcher, opts)

	summary, err := c.Run(context.Background(), []string{"stuck", "offline", "alice"}, writer.NewRecordDump(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"stuck", "offline"}, summary.Exhausted)
	assert.Equal(t, []string{"alice"}, summary.Succeeded)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, 4, fetcher.calls["stuck"])
	assert.Equal(t, 3, fetcher.calls["offline"])
	assert.Equal(t, 3, summary.RateLimitPauses)
	assert.Equal(t, DispositionRetryExhausted, summary.Results[0].Disposition)
	assert.Contains(t, out.String(), "Retry exhausted (2): stuck, offline")
}

func TestRunPrintSwitches(t *testing.T) {
	fetcher := newFakeFetcher().on("bob", fail(errs.KindUnauthorized, "Not authorized."))

	var out bytes.Buffer
	opts := testOptions(&out, &pauseRecorder{})
	opts.PrintFailed = false
	opts.PrintUnauthorized = false
	c := New(fetcher, opts)

	summary, err := c.Run(context.Background(), []string{"bob"}, writer.NewRecordDump(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, []string{"bob"}, summary.Unauthorized, "lists are kept regardless of printing")
}

func TestRunPrintErrorsSwitch(t *testing.T) {
	const (
		otherText   = "Some other platform error"
		networkText = "Failed ot send request, try again"
	)

	for _, enabled := range []bool{true, false} {
		fetcher := newFakeFetcher().
			on("odd", fail(errs.KindOther, otherText)).
			on("flaky", fail(errs.KindTransientNetwork, networkText), ok(post(t, 1)))

		log := logger.NewTestLogger()
		opts := testOptions(&bytes.Buffer{}, &pauseRecorder{})
		opts.PrintErrors = enabled
		opts.Logger = log

		summary, err := New(fetcher, opts).Run(context.Background(), []string{"odd", "flaky"}, writer.NewRecordDump(&bytes.Buffer{}))
		require.NoError(t, err)
		assert.Equal(t, []string{"odd"}, summary.Failed)
		assert.Equal(t, []string{"flaky"}, summary.Succeeded)

		var fetchFailures int
		var withErrorText []string
		for _, m := range log.Messages() {
			if m.Message == "Fetch failed" {
				fetchFailures++
			}
			for _, v := range m.Fields {
				text := fmt.Sprint(v)
				if strings.Contains(text, otherText) || strings.Contains(text, networkText) {
					withErrorText = append(withErrorText, m.Level+" "+m.Message)
					break
				}
			}
		}

		if enabled {
			assert.Equal(t, 2, fetchFailures)
			assert.Contains(t, withErrorText, "WARN retrying operation")
			assert.Contains(t, withErrorText, "WARN Account collection ended without data")
		} else {
			assert.Zero(t, fetchFailures)
			assert.Empty(t, withErrorText)
		}
	}
}

func TestRunEmptyAccountList(t *testing.T) {
	var out bytes.Buffer
	c := New(newFakeFetcher(), testOptions(&out, &pauseRecorder{}))

	summary, err := c.Run(context.Background(), nil, writer.NewRecordDump(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Zero(t, summary.Processed())
	assert.True(t, summary.AllSucceeded())
	assert.NotEmpty(t, summary.RunID)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))
}

type failingWriter struct{ calls int }

func (w *failingWriter) WriteBatch(account string, posts []twitter.Post) error {
	w.calls++
	return errors.New("disk full")
}

func TestRunStopsOnWriterError(t *testing.T) {
	fetcher := newFakeFetcher().
		on("alice", ok(post(t, 1))).
		on("bob", ok(post(t, 2)))

	c := New(fetcher, testOptions(&bytes.Buffer{}, &pauseRecorder{}))
	w := &failingWriter{}

	summary, err := c.Run(context.Background(), []string{"alice", "bob"}, w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, []string{"alice"}, fetcher.order)
	assert.Zero(t, summary.Processed())
}

func TestRunCancelledDuringPause(t *testing.T) {
	fetcher := newFakeFetcher().
		on("alice", ok(post(t, 1))).
		on("bob", fail(errs.KindRateLimited, "Rate limit exceeded")).
		on("carol", ok(post(t, 3)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOptions(&bytes.Buffer{}, &pauseRecorder{})
	opts.Policy.Wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return retry.Wait(ctx, d)
	}
	c := New(fetcher, opts)

	summary, err := c.Run(ctx, []string{"alice", "bob", "carol"}, writer.NewRecordDump(&bytes.Buffer{}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"alice"}, summary.Succeeded)
	assert.Equal(t, 1, summary.Processed())
	assert.Zero(t, fetcher.calls["carol"])
}

func TestCollectCancelledKeepsPartialOutput(t *testing.T) {
	fetcher := newFakeFetcher().
		on("alice", ok(post(t, 1))).
		on("bob", fail(errs.KindRateLimited, "Rate limit exceeded"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOptions(&bytes.Buffer{}, &pauseRecorder{})
	opts.Policy.Wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	filename := filepath.Join(t.TempDir(), "out.jsonl")
	_, err := New(fetcher, opts).Collect(ctx, []string{"alice", "bob"}, writer.FormatJSON, filename)
	assert.ErrorIs(t, err, context.Canceled)

	data, readErr := os.ReadFile(filename)
	require.NoError(t, readErr)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestCollectUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "out.xml")

	summary, err := New(newFakeFetcher(), testOptions(&bytes.Buffer{}, &pauseRecorder{})).
		Collect(context.Background(), []string{"alice"}, writer.Format("xml"), filename)
	require.Error(t, err)
	assert.Nil(t, summary)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "no output or temporary file is left behind")
}

func TestCollectPairsArguments(t *testing.T) {
	fetcher := newFakeFetcher().on("alice", ok(post(t, 1, "x")))
	dir := t.TempDir()

	c := New(fetcher, testOptions(&bytes.Buffer{}, &pauseRecorder{}))

	jsonFile := filepath.Join(dir, "a.jsonl")
	_, err := c.Collect(context.Background(), []string{"alice"}, writer.FormatJSON, jsonFile)
	require.NoError(t, err)

	csvFile := filepath.Join(dir, "a.csv")
	_, err = c.Collect(context.Background(), []string{"alice"}, writer.FormatHashtags, csvFile)
	require.NoError(t, err)

	jsonData, _ := os.ReadFile(jsonFile)
	csvData, _ := os.ReadFile(csvFile)
	assert.True(t, strings.HasPrefix(string(jsonData), `{"entities"`))
	assert.Equal(t, "alice,\"[\"\"x\"\"]\"\n", string(csvData))
}

func TestRunRecordsMetrics(t *testing.T) {
	fetcher := newFakeFetcher().
		on("alice", fail(errs.KindRateLimited, "Rate limit exceeded"), ok(post(t, 1), post(t, 2))).
		on("bob", fail(errs.KindUnauthorized, "Not authorized."))

	rec, err := metrics.New()
	require.NoError(t, err)

	opts := testOptions(&bytes.Buffer{}, &pauseRecorder{})
	opts.Metrics = rec
	_, err = New(fetcher, opts).Run(context.Background(), []string{"alice", "bob"}, writer.NewRecordDump(&bytes.Buffer{}))
	require.NoError(t, err)

	expected := `
# HELP twcollector_accounts_total Accounts processed, by final disposition.
# TYPE twcollector_accounts_total counter
twcollector_accounts_total{disposition="success"} 1
twcollector_accounts_total{disposition="unauthorized"} 1
# HELP twcollector_posts_written_total Posts handed to the output writer.
# TYPE twcollector_posts_written_total counter
twcollector_posts_written_total 2
# HELP twcollector_rate_limit_pauses_total Pauses taken after a rate limit response.
# TYPE twcollector_rate_limit_pauses_total counter
twcollector_rate_limit_pauses_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected),
		"twcollector_accounts_total", "twcollector_posts_written_total", "twcollector_rate_limit_pauses_total"))
}

type recordingProgress struct {
	total    int
	advances []string
	finished bool
}

func (p *recordingProgress) Start(total int) { p.total = total }
func (p *recordingProgress) Advance(account, disposition string, posts int) {
	p.advances = append(p.advances, account+":"+disposition)
}
func (p *recordingProgress) Finish() { p.finished = true }

func TestRunReportsProgress(t *testing.T) {
	fetcher := newFakeFetcher().
		on("alice", ok(post(t, 1))).
		on("bob", fail(errs.KindUnauthorized, "Not authorized."))

	progress := &recordingProgress{}
	opts := testOptions(&bytes.Buffer{}, &pauseRecorder{})
	opts.Progress = progress

	_, err := New(fetcher, opts).Run(context.Background(), []string{"alice", "bob"}, writer.NewRecordDump(&bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, 2, progress.total)
	assert.Equal(t, []string{"alice:success", "bob:unauthorized"}, progress.advances)
	assert.True(t, progress.finished)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Collection.PrintErrors = false
	cfg.RateLimit.RetryDelay = 5 * time.Second
	cfg.RateLimit.MaxRetries = 7

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.False(t, opts.PrintErrors)
	assert.True(t, opts.PrintFailed)
	assert.Equal(t, 200, opts.PostsPerAccount)
	assert.Equal(t, 7, opts.Policy.MaxRateLimitRetries)
	assert.Equal(t, 5, opts.Policy.MaxNetworkRetries)
	assert.Equal(t, 5*time.Second, opts.Policy.RateLimitBackoff.NextDelay(1))
	assert.Equal(t, time.Duration(0), opts.Policy.NetworkBackoff.NextDelay(1))

	cfg.RateLimit.Backoff = "fibonacci"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestSummaryJSON(t *testing.T) {
	s := newSummary("run-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.add(AccountResult{Account: "alice", Disposition: DispositionSuccess, Posts: 2})
	s.add(AccountResult{Account: "bob", Disposition: DispositionUnauthorized, ErrorKind: errs.KindUnauthorized, Error: "Not authorized."})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, []interface{}{"bob"}, decoded["unauthorized"])
	assert.Equal(t, []interface{}{}, decoded["failed"])
	assert.Equal(t, float64(2), decoded["posts_written"])

	rows := s.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "unauthorized", rows[1].Disposition)
}
