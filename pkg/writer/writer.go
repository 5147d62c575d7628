package writer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"twcollector/pkg/twitter"
)

// Format names a writer variant
type Format string

const (
	// FormatJSON writes every post as one JSON object per line
	FormatJSON Format = "json"
	// FormatHashtags writes one CSV row of tags per account
	FormatHashtags Format = "hashtags"
)

// Formats lists the supported output formats
var Formats = []Format{FormatJSON, FormatHashtags}

// ParseFormat returns the Format named by s
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatHashtags:
		return FormatHashtags, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or hashtags)", s)
	}
}

// BatchWriter appends one account's batch to the output.
// Implementations add no timestamps or other run-dependent data.
type BatchWriter interface {
	WriteBatch(account string, posts []twitter.Post) error
}

// New returns the writer for format, writing to w
func New(format Format, w io.Writer) (BatchWriter, error) {
	switch format {
	case FormatJSON:
		return NewRecordDump(w), nil
	case FormatHashtags:
		return NewTagExtraction(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// RecordDump writes each post's raw JSON on its own line, in batch order
type RecordDump struct {
	w *bufio.Writer
}

// NewRecordDump creates a RecordDump writing to w
func NewRecordDump(w io.Writer) *RecordDump {
	return &RecordDump{w: bufio.NewWriter(w)}
}

// WriteBatch appends one line per post and flushes
func (d *RecordDump) WriteBatch(account string, posts []twitter.Post) error {
	for i := range posts {
		raw, err := json.Marshal(posts[i])
		if err != nil {
			return fmt.Errorf("failed to encode post %d of %s: %w", i, account, err)
		}
		if _, err := d.w.Write(raw); err != nil {
			return fmt.Errorf("failed to write post of %s: %w", account, err)
		}
		if err := d.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write post of %s: %w", account, err)
		}
	}
	if err := d.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush posts of %s: %w", account, err)
	}
	return nil
}

// TagExtraction writes one CSV row per account: the account name and the
// batch's hashtags, flattened in order with duplicates, as a JSON array.
type TagExtraction struct {
	w *csv.Writer
}

// NewTagExtraction creates a TagExtraction writing to w
func NewTagExtraction(w io.Writer) *TagExtraction {
	return &TagExtraction{w: csv.NewWriter(w)}
}

// WriteBatch appends the account's row and flushes
func (t *TagExtraction) WriteBatch(account string, posts []twitter.Post) error {
	tags := FlattenTags(posts)

	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags of %s: %w", account, err)
	}

	if err := t.w.Write([]string{account, string(encoded)}); err != nil {
		return fmt.Errorf("failed to write tags of %s: %w", account, err)
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return fmt.Errorf("failed to flush tags of %s: %w", account, err)
	}
	return nil
}

// FlattenTags concatenates the hashtags of posts in order; never nil
func FlattenTags(posts []twitter.Post) []string {
	tags := []string{}
	for _, p := range posts {
		tags = append(tags, p.Hashtags()...)
	}
	return tags
}
