package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker prints one line per processed account with a progress bar
type StatusTracker struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	done      int
	posts     int
	failures  int
	startTime time.Time
}

// NewStatusTracker creates a tracker writing to out
func NewStatusTracker(out io.Writer) *StatusTracker {
	return &StatusTracker{out: out, startTime: time.Now()}
}

// Start resets the tracker for a run over total accounts
func (st *StatusTracker) Start(total int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.total = total
	st.done = 0
	st.posts = 0
	st.failures = 0
	st.startTime = time.Now()
	fmt.Fprintf(st.out, "%s %d accounts\n", Magenta("[COLLECTING]"), total)
}

// Advance records one finished account
func (st *StatusTracker) Advance(account string, disposition string, posts int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.done++
	st.posts += posts

	status := Green(disposition)
	if disposition != "success" {
		st.failures++
		status = Red(disposition)
	}
	fmt.Fprintf(st.out, "%s %s %s %s\n", st.bar(), Cyan(account), status, Dim(fmt.Sprintf("(%d posts)", posts)))
}

// Finish prints the closing line
func (st *StatusTracker) Finish() {
	st.mu.Lock()
	defer st.mu.Unlock()

	fmt.Fprintf(st.out, "%s %d/%d accounts, %d posts, %d without data in %s\n",
		Green("[DONE]"), st.done, st.total, st.posts, st.failures,
		time.Since(st.startTime).Round(time.Second))
}

// Done returns the number of accounts processed so far
func (st *StatusTracker) Done() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.done
}

// Posts returns the number of posts collected so far
func (st *StatusTracker) Posts() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.posts
}

// bar renders the progress bar; callers hold mu
func (st *StatusTracker) bar() string {
	filled := 0
	if st.total > 0 {
		filled = st.done * barWidth / st.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, st.done, st.total)
}
