package census

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// collectPaths walks root and returns the visited paths relative to root, sorted.
func collectPaths(t *testing.T, e Enumerator, root string) ([]string, int64, error) {
	t.Helper()

	var (
		mu    sync.Mutex
		paths []string
	)

	traversalErrors, err := e.Walk(context.Background(), root, func(path string, _ int64) {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		mu.Lock()
		paths = append(paths, filepath.ToSlash(rel))
		mu.Unlock()
	})

	sort.Strings(paths)

	return paths, traversalErrors, err
}

func TestWalkVisitsRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ab/cdef", []byte("x"))
	writeFile(t, root, "ab/0123", []byte("y"))
	writeFile(t, root, "ff/nested/deep", []byte("z"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	if err := os.Symlink(filepath.Join(root, "ab"), filepath.Join(root, "link-dir")); err != nil {
		t.Logf("symlinks unsupported: %v", err)
	}

	if err := os.Symlink(filepath.Join(root, "ab", "cdef"), filepath.Join(root, "link-file")); err != nil {
		t.Logf("symlinks unsupported: %v", err)
	}

	paths, traversalErrors, err := collectPaths(t, Enumerator{}, root)
	require.NoError(t, err)
	assert.Zero(t, traversalErrors)
	assert.Equal(t, []string{"ab/0123", "ab/cdef", "ff/nested/deep"}, paths)
}

func TestWalkReportsSizes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ab/one", []byte("12345"))

	var (
		mu    sync.Mutex
		sizes []int64
	)

	_, err := Enumerator{Workers: 1}.Walk(context.Background(), root, func(_ string, size int64) {
		mu.Lock()
		defer mu.Unlock()

		sizes = append(sizes, size)
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, sizes)
}

func TestWalkExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ab/cdef", []byte("x"))
	writeFile(t, root, "pack/pack-1.pack", []byte("PACK"))
	writeFile(t, root, "pack/pack-1.idx", []byte("idx"))
	writeFile(t, root, "info/packs", []byte("P pack-1.pack"))

	excludes, err := CompileExcludes([]string{`/pack$`, `/info/`})
	require.NoError(t, err)

	paths, _, err := collectPaths(t, Enumerator{Excludes: excludes}, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab/cdef"}, paths)
}

func TestCompileExcludesInvalid(t *testing.T) {
	_, err := CompileExcludes([]string{"("})
	require.Error(t, err)
}

func TestWalkRootErrors(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "file", []byte("x"))

	_, _, err := collectPaths(t, Enumerator{}, filepath.Join(root, "missing"))
	require.Error(t, err)

	_, _, err = collectPaths(t, Enumerator{}, file)
	require.ErrorContains(t, err, "not a directory")
}

func TestWalkContinuesPastUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	writeFile(t, root, "ab/cdef", []byte("x"))
	writeFile(t, root, "cd/hidden", []byte("y"))
	writeFile(t, root, "ef/0123", []byte("z"))

	locked := filepath.Join(root, "cd")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	log, logs := observedLogger()

	paths, traversalErrors, err := collectPaths(t, Enumerator{Logger: log}, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab/cdef", "ef/0123"}, paths)
	assert.Equal(t, int64(1), traversalErrors)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestWalkCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ab/cdef", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Enumerator{}.Walk(ctx, root, func(string, int64) {})
	require.ErrorIs(t, err, context.Canceled)
}
