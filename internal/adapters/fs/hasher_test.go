package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bench/internal/adapters/fs"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHasherFileFingerprint(t *testing.T) {
	t.Parallel()

	h := fs.NewHasher(fs.NewWalker())
	path := filepath.Join(t.TempDir(), "corpus.bin")
	write(t, path, "payload")

	fp1, err := h.ComputeSourceFingerprint(path)
	require.NoError(t, err)
	assert.Len(t, string(fp1), 16)

	fp2, err := h.ComputeSourceFingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	write(t, path, "payload changed")
	fp3, err := h.ComputeSourceFingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestHasherDirectoryFingerprint(t *testing.T) {
	t.Parallel()

	h := fs.NewHasher(fs.NewWalker())
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.txt"), "alpha")
	write(t, filepath.Join(dir, "sub", "b.txt"), "beta")

	fp1, err := h.ComputeSourceFingerprint(dir)
	require.NoError(t, err)

	fp2, err := h.ComputeSourceFingerprint(dir)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	// Adding a file changes the fingerprint.
	write(t, filepath.Join(dir, "c.txt"), "gamma")
	fp3, err := h.ComputeSourceFingerprint(dir)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestHasherMissingSource(t *testing.T) {
	t.Parallel()

	h := fs.NewHasher(fs.NewWalker())
	_, err := h.ComputeSourceFingerprint(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat data source")
}

func TestWalkerSkipsVersionControl(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, filepath.Join(dir, "keep.txt"), "x")
	write(t, filepath.Join(dir, ".git", "HEAD"), "ref")
	write(t, filepath.Join(dir, "build", "out.bin"), "x")

	w := fs.NewWalker()

	var paths []string
	for p := range w.WalkFiles(dir, []string{"build"}) {
		paths = append(paths, filepath.Base(p))
	}
	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestWalkerEarlyStop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.txt"), "x")
	write(t, filepath.Join(dir, "b.txt"), "x")

	w := fs.NewWalker()
	count := 0
	for range w.WalkFiles(dir, nil) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
