package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "twcollector"

// Recorder holds the counters of one collection run
type Recorder struct {
	registry        *prometheus.Registry
	accounts        *prometheus.CounterVec
	posts           prometheus.Counter
	rateLimitPauses prometheus.Counter
	networkRetries  prometheus.Counter
	fetchDuration   *prometheus.HistogramVec
}

// New constructs a recorder on its own registry
func New() (*Recorder, error) {
	registry := prometheus.NewRegistry()

	accounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_total",
		Help:      "Accounts processed, by final disposition.",
	}, []string{"disposition"})

	posts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_written_total",
		Help:      "Posts handed to the output writer.",
	})

	rateLimitPauses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_pauses_total",
		Help:      "Pauses taken after a rate limit response.",
	})

	networkRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "network_retries_total",
		Help:      "Fetches retried after a transient network failure.",
	})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Latency of timeline fetches, by outcome kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	for _, c := range []prometheus.Collector{accounts, posts, rateLimitPauses, networkRetries, fetchDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Recorder{
		registry:        registry,
		accounts:        accounts,
		posts:           posts,
		rateLimitPauses: rateLimitPauses,
		networkRetries:  networkRetries,
		fetchDuration:   fetchDuration,
	}, nil
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveAccount counts an account that reached its final disposition
func (r *Recorder) ObserveAccount(disposition string) {
	r.accounts.WithLabelValues(disposition).Inc()
}

// AddPosts counts posts handed to the writer
func (r *Recorder) AddPosts(n int) {
	if n > 0 {
		r.posts.Add(float64(n))
	}
}

// IncRateLimitPause counts one rate limit pause
func (r *Recorder) IncRateLimitPause() {
	r.rateLimitPauses.Inc()
}

// IncNetworkRetry counts one network retry
func (r *Recorder) IncNetworkRetry() {
	r.networkRetries.Inc()
}

// ObserveFetch records the latency of one fetch; outcome is "success" or an error kind
func (r *Recorder) ObserveFetch(outcome string, d time.Duration) {
	r.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// WriteTextfile writes the current values in the node_exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
