package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFileCommit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.jsonl")

	out, err := Create(target)
	require.NoError(t, err)
	assert.Equal(t, target, out.Path())

	_, err = out.Write([]byte("line one\n"))
	require.NoError(t, err)
	_, err = out.Write([]byte("line two\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(18), out.Written())

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "target must not exist before commit")

	require.NoError(t, out.Commit())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is gone")
}

func TestOutputFileReplacesExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(target, []byte("old\n"), 0644))

	out, err := Create(target)
	require.NoError(t, err)
	_, err = out.Write([]byte("new\n"))
	require.NoError(t, err)

	data, _ := os.ReadFile(target)
	assert.Equal(t, "old\n", string(data), "old content visible until commit")

	require.NoError(t, out.Close())
	data, _ = os.ReadFile(target)
	assert.Equal(t, "new\n", string(data))
}

func TestOutputFileAbort(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(target, []byte("keep\n"), 0644))

	out, err := Create(target)
	require.NoError(t, err)
	_, err = out.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, out.Abort())
	require.NoError(t, out.Close(), "close after abort is a no-op")

	data, _ := os.ReadFile(target)
	assert.Equal(t, "keep\n", string(data))

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestOutputFileWriteAfterClose(t *testing.T) {
	out, err := Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	require.NoError(t, out.Commit())
	require.NoError(t, out.Commit())

	_, err = out.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCreateEmptyPath(t *testing.T) {
	_, err := Create("")
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	target := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteFileAtomic(target, []byte(`{"ok":true}`)))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}
