package census

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// Enumerator lists the regular files below a loose-object root.
type Enumerator struct {
	// Excludes prunes matching directories and skips matching files.
	// Patterns are matched against slash-separated paths.
	Excludes []*regexp.Regexp
	// Logger receives traversal diagnostics. Nil discards them.
	Logger Logger
	// Workers bounds the number of traversal goroutines (0 = fastwalk default).
	Workers int
}

// CompileExcludes compiles exclusion patterns for an Enumerator.
func CompileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	excludes := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		excludes = append(excludes, re)
	}

	return excludes, nil
}

// shouldExcludeByPattern checks if path matches any exclusion regex.
func shouldExcludeByPattern(path string, patterns []*regexp.Regexp) *regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}

	fPath := filepath.ToSlash(path)

	for _, re := range patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}

// Walk calls visit with the path and size of every regular file under root.
// Directories, symlinks and other non-regular entries are not visited.
//
// visit is called from multiple goroutines and must be safe for concurrent use.
// An entry that cannot be read is logged and skipped; Walk returns the number
// of such traversal errors. The only errors returned are an unusable root and
// cancellation of ctx.
func (e Enumerator) Walk(ctx context.Context, root string, visit func(path string, size int64)) (int64, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if statInfo, err := os.Stat(root); err != nil {
		return 0, fmt.Errorf("accessing path %q: %w", root, err)
	} else if !statInfo.IsDir() {
		return 0, fmt.Errorf("path %q is not a directory", root)
	}

	var traversalErrors atomic.Int64

	conf := &fastwalk.Config{
		Follow:     false,
		NumWorkers: e.Workers,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Error("walking object directory", zap.String("path", path), zap.Error(err))
			traversalErrors.Add(1)

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if matched := shouldExcludeByPattern(path, e.Excludes); matched != nil {
			log.Info("excluding path", zap.String("path", path), zap.String("pattern", matched.String()))

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			log.Error("reading file metadata", zap.String("path", path), zap.Error(err))
			traversalErrors.Add(1)

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		visit(path, fileInfo.Size())

		return nil
	})
	if walkErr != nil {
		return traversalErrors.Load(), fmt.Errorf("walking %q: %w", root, walkErr)
	}

	return traversalErrors.Load(), nil
}
