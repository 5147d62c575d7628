package collector

import (
	"time"

	errs "twcollector/pkg/errors"
	"twcollector/pkg/report"
)

// Disposition is the final state of one account in a run
type Disposition string

const (
	DispositionSuccess        Disposition = "success"
	DispositionUnauthorized   Disposition = "unauthorized"
	DispositionFailed         Disposition = "failed"
	DispositionRetryExhausted Disposition = "retry_exhausted"
)

// AccountResult is what happened to one account
type AccountResult struct {
	Account         string      `json:"account"`
	Disposition     Disposition `json:"disposition"`
	Posts           int         `json:"posts"`
	RateLimitPauses int         `json:"rate_limit_pauses"`
	NetworkRetries  int         `json:"network_retries"`
	ErrorKind       errs.Kind   `json:"error_kind,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Summary is the structured outcome of a run. Results follow input order.
type Summary struct {
	RunID      string    `json:"run_id"`
	Format     string    `json:"format,omitempty"`
	Output     string    `json:"output,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Results []AccountResult `json:"results"`

	Succeeded    []string `json:"succeeded"`
	Unauthorized []string `json:"unauthorized"`
	Failed       []string `json:"failed"`
	Exhausted    []string `json:"retry_exhausted"`

	PostsWritten    int `json:"posts_written"`
	RateLimitPauses int `json:"rate_limit_pauses"`
	NetworkRetries  int `json:"network_retries"`
}

func newSummary(runID string, started time.Time) *Summary {
	return &Summary{
		RunID:        runID,
		StartedAt:    started,
		Results:      []AccountResult{},
		Succeeded:    []string{},
		Unauthorized: []string{},
		Failed:       []string{},
		Exhausted:    []string{},
	}
}

func (s *Summary) add(r AccountResult) {
	s.Results = append(s.Results, r)
	s.RateLimitPauses += r.RateLimitPauses
	s.NetworkRetries += r.NetworkRetries

	switch r.Disposition {
	case DispositionSuccess:
		s.Succeeded = append(s.Succeeded, r.Account)
		s.PostsWritten += r.Posts
	case DispositionUnauthorized:
		s.Unauthorized = append(s.Unauthorized, r.Account)
	case DispositionRetryExhausted:
		s.Exhausted = append(s.Exhausted, r.Account)
	default:
		s.Failed = append(s.Failed, r.Account)
	}
}

// Processed returns the number of accounts that reached a disposition
func (s *Summary) Processed() int {
	return len(s.Results)
}

// AllSucceeded reports whether every processed account succeeded
func (s *Summary) AllSucceeded() bool {
	return len(s.Succeeded) == len(s.Results)
}

// Duration returns how long the run took
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Lists returns the end-of-run lists for printing
func (s *Summary) Lists() report.Lists {
	return report.Lists{
		Failed:       s.Failed,
		Unauthorized: s.Unauthorized,
		Exhausted:    s.Exhausted,
	}
}

// Rows returns the per-account results as table rows
func (s *Summary) Rows() []report.Row {
	rows := make([]report.Row, 0, len(s.Results))
	for _, r := range s.Results {
		rows = append(rows, report.Row{
			Account:     r.Account,
			Disposition: string(r.Disposition),
			Posts:       r.Posts,
			Pauses:      r.RateLimitPauses,
			Retries:     r.NetworkRetries,
			Error:       r.Error,
		})
	}
	return rows
}
