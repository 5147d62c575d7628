// Package report renders the outcome of a collection run: the failed and
// unauthorized account lists printed at the end of a run, an aligned
// per-account table, and the JSON summary file.
package report
