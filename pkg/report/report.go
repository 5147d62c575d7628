package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"twcollector/pkg/storage"
)

// Lists are the end-of-run account lists
type Lists struct {
	Failed       []string
	Unauthorized []string
	Exhausted    []string
}

// PrintOptions select which lists Print writes
type PrintOptions struct {
	Failed       bool
	Unauthorized bool
}

// Print writes the selected lists, one per line.
// Accounts that ran out of retries are reported with the failed list.
func Print(w io.Writer, lists Lists, opts PrintOptions) error {
	if opts.Failed {
		if err := printList(w, "Failed", lists.Failed); err != nil {
			return err
		}
		if len(lists.Exhausted) > 0 {
			if err := printList(w, "Retry exhausted", lists.Exhausted); err != nil {
				return err
			}
		}
	}
	if opts.Unauthorized {
		if err := printList(w, "Unauthorized", lists.Unauthorized); err != nil {
			return err
		}
	}
	return nil
}

func printList(w io.Writer, label string, accounts []string) error {
	value := "none"
	if len(accounts) > 0 {
		value = strings.Join(accounts, ", ")
	}
	_, err := fmt.Fprintf(w, "%s (%d): %s\n", label, len(accounts), value)
	return err
}

// Row is one account's line in the result table
type Row struct {
	Account     string
	Disposition string
	Posts       int
	Pauses      int
	Retries     int
	Error       string
}

// PrintTable writes an aligned per-account table
func PrintTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tRESULT\tPOSTS\tPAUSES\tRETRIES\tERROR")
	for _, r := range rows {
		errText := r.Error
		if len(errText) > 60 {
			errText = errText[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.Account, r.Disposition, r.Posts, r.Pauses, r.Retries, errText)
	}
	return tw.Flush()
}

// SaveJSON writes v as indented JSON to path, replacing the file atomically
func SaveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	data = append(data, '\n')

	if err := storage.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}
