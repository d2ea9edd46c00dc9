package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/idelchi/objcensus/internal/census"
	"github.com/idelchi/objcensus/internal/odb"
)

// newLogger builds the diagnostics logger: errors only, or every object when verbose.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.ErrorLevel
	if verbose {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)

	return zap.New(core)
}

// objectsDir returns the loose-object directory of the repository at path.
func objectsDir(opts options, path string) string {
	if opts.ObjectsDir != "" {
		return opts.ObjectsDir
	}

	return filepath.Join(path, ".git", "objects")
}

func render(opts options, counts census.Counts, report *census.Report, w io.Writer) error {
	switch opts.Output {
	case "json":
		if report != nil {
			return PrintJSON(report, w)
		}

		return PrintJSON(counts, w)
	case "table":
		return PrintTable(counts, report, w)
	default:
		return fmt.Errorf("unknown output format: %s", opts.Output)
	}
}

func runWalk(cmd *cobra.Command, opts options, path string) error {
	stderr := cmd.ErrOrStderr()

	log := newLogger(opts.Verbose, stderr)
	defer func() { _ = log.Sync() }()

	enableProgress := opts.Output != "json" &&
		!opts.Verbose &&
		stderr == os.Stderr &&
		isatty.IsTerminal(os.Stderr.Fd())

	// Simple progress callback that prints directly to stderr
	var progressHook func(files, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(files, bytes int64) {
			msg := fmt.Sprintf("Scanning… %d files, %s",
				files, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	scanner, err := census.NewScanner(census.Options{
		Workers:  opts.Workers,
		Excludes: opts.Excludes,
		Strict:   opts.Strict,
		Progress: progressHook,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	report, scanErr := scanner.Scan(ctx, objectsDir(opts, path))

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if report == nil {
		return scanErr
	}

	// A timed-out walk still prints what it counted.
	return multierr.Append(scanErr, render(opts, report.Counts, report, cmd.OutOrStdout()))
}

func runLibgit(cmd *cobra.Command, opts options, path string) error {
	log := newLogger(opts.Verbose, cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	counter := &odb.Counter{Logger: log}

	counts, err := counter.Count(ctx, path)
	if err != nil {
		return err
	}

	return render(opts, counts, nil, cmd.OutOrStdout())
}
