package census

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// Options configures a Scanner.
type Options struct {
	// Workers is the number of classifier goroutines (0 = GOMAXPROCS).
	Workers int
	// Excludes contains regex patterns of paths to leave out of the scan.
	Excludes []string
	// Strict enables the strict header grammar check.
	Strict bool
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Progress, if set, is called periodically with the files and bytes scanned so far.
	Progress func(files, bytes int64)
	// Logger receives diagnostics. Nil discards them.
	Logger Logger
}

// Scanner counts loose objects by reading their headers directly from disk.
type Scanner struct {
	enumerator       Enumerator
	classifier       Classifier
	workers          int
	progressInterval time.Duration
	progressHook     func(int64, int64)
	log              Logger
}

var _ Counter = (*Scanner)(nil)

// NewScanner creates a Scanner from opt.
func NewScanner(opt Options) (*Scanner, error) {
	excludes, err := CompileExcludes(opt.Excludes)
	if err != nil {
		return nil, err
	}

	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Scanner{
		enumerator:       Enumerator{Excludes: excludes, Logger: log},
		classifier:       Classifier{Strict: opt.Strict, Logger: log},
		workers:          workers,
		progressInterval: opt.ProgressInterval,
		progressHook:     opt.Progress,
		log:              log,
	}, nil
}

// partial is the private tally of one classifier worker.
type partial struct {
	counts    Counts
	malformed int64
	ioErrors  int64
}

func (p *partial) add(o Outcome) {
	switch o.Status {
	case Recognized:
		p.counts.Add(o.Header.Kind)
	case Malformed:
		p.malformed++
	case IOError:
		p.ioErrors++
	}
}

// Count implements Counter.
func (s *Scanner) Count(ctx context.Context, root string) (Counts, error) {
	report, err := s.Scan(ctx, root)
	if report == nil {
		return Counts{}, err
	}

	return report.Counts, err
}

// Scan walks root and classifies every regular file below it.
//
// Unreadable and malformed files are logged and skipped. If ctx is cancelled
// the walk stops early, and the counts gathered so far are returned together
// with the context error. Any other error means the root could not be walked
// and no report is returned.
func (s *Scanner) Scan(ctx context.Context, root string) (*Report, error) {
	if root == "" {
		root = "."
	}

	root = filepath.Clean(root)
	start := time.Now()

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := &collector{}
	startProgressReporter(ctx, collector, s.progressHook, s.progressInterval)

	paths := make(chan string, s.workers)
	partials := make([]partial, s.workers)

	var group errgroup.Group

	for i := range partials {
		group.Go(func() error {
			for path := range paths {
				partials[i].add(s.classifier.Classify(path))
			}

			return nil
		})
	}

	traversalErrors, walkErr := s.enumerator.Walk(ctx, root, func(path string, size int64) {
		collector.add(size)
		paths <- path
	})

	close(paths)
	_ = group.Wait()

	if walkErr != nil && ctx.Err() == nil {
		return nil, walkErr
	}

	report := collector.finalize()
	report.TraversalErrors = traversalErrors

	for _, p := range partials {
		report.Counts.Merge(p.counts)
		report.Malformed += p.malformed
		report.IOErrors += p.ioErrors
	}

	report.Elapsed = time.Since(start)

	s.log.Info("scan complete",
		zap.String("root", root),
		zap.Int64("files", report.Files),
		zap.Int64("objects", report.Counts.Total()),
		zap.Int64("skipped", report.Skipped()),
		zap.Duration("elapsed", report.Elapsed))

	if walkErr != nil {
		return report, fmt.Errorf("scan interrupted: %w", walkErr)
	}

	return report, nil
}
