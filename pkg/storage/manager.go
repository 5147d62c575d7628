package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed is returned when writing to a committed or aborted output
var ErrClosed = errors.New("output file already closed")

// OutputFile is a run's output. Writes go to a temporary file next to the
// target, which replaces the target only when the file is committed.
type OutputFile struct {
	path     string
	tempPath string
	file     *os.File
	written  int64
	closed   bool
	mu       sync.Mutex
}

// Create opens a new output for path, creating parent directories
func Create(path string) (*OutputFile, error) {
	if path == "" {
		return nil, errors.New("output path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	return &OutputFile{
		path:     path,
		tempPath: tmp.Name(),
		file:     tmp,
	}, nil
}

// Write appends p to the temporary file
func (o *OutputFile) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, ErrClosed
	}
	n, err := o.file.Write(p)
	o.written += int64(n)
	return n, err
}

// Path returns the final path of the output
func (o *OutputFile) Path() string {
	return o.path
}

// Written returns the number of bytes written so far
func (o *OutputFile) Written() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Commit syncs the temporary file and renames it over the target.
// Calling Commit or Abort again is a no-op.
func (o *OutputFile) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	syncErr := o.file.Sync()
	closeErr := o.file.Close()

	if syncErr != nil {
		os.Remove(o.tempPath)
		return fmt.Errorf("failed to sync output: %w", syncErr)
	}
	if closeErr != nil {
		os.Remove(o.tempPath)
		return fmt.Errorf("failed to close output: %w", closeErr)
	}

	if err := os.Chmod(o.tempPath, 0644); err != nil {
		os.Remove(o.tempPath)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}

	// Atomic rename
	if err := os.Rename(o.tempPath, o.path); err != nil {
		os.Remove(o.tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Abort discards everything written and leaves the target untouched
func (o *OutputFile) Abort() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	closeErr := o.file.Close()
	if err := os.Remove(o.tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return closeErr
}

// Close commits the output
func (o *OutputFile) Close() error {
	return o.Commit()
}

// WriteFileAtomic writes data to path through a temporary file and rename
func WriteFileAtomic(path string, data []byte) error {
	out, err := Create(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Abort()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out.Commit()
}
