package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// options collects the flags shared by all subcommands.
type options struct {
	// Output represents output format (table or json).
	Output string
	// Verbose enables per-object diagnostics.
	Verbose bool
	// ObjectsDir overrides the loose-object directory scanned by walk.
	ObjectsDir string
	// Workers is the number of classifier goroutines (0 = GOMAXPROCS).
	Workers int
	// Excludes contains regex patterns to exclude from the walk.
	Excludes []string
	// Strict enables the strict header grammar check.
	Strict bool
	// Timeout bounds the walk (0 = unlimited).
	Timeout time.Duration
}

//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{"table", "json"}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.command().Execute()
}

func (c CLI) command() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "objcensus",
		Short: "Count the blobs, trees, commits and tags in a git repository",
		Long: heredoc.Doc(`
			objcensus counts the objects in a git repository by type.

			The walk strategy reads loose objects directly from .git/objects and
			does not see objects stored in pack files. The libgit strategy asks
			go-git to enumerate the whole object database, packed objects included.
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(allowedOutputs, opts.Output) {
				return fmt.Errorf("invalid output format %q: must be one of %v", opts.Output, allowedOutputs)
			}

			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.Output, "output", "o", "table", "Output format: json or table")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every object visited")

	root.AddCommand(newWalkCmd(opts))
	root.AddCommand(newLibgitCmd(opts))

	return root
}

func newWalkCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk [path]",
		Short: "Count loose objects by reading their headers from disk",
		Long: heredoc.Doc(`
			Walk every file below <path>/.git/objects, inflate just enough of it to
			read the object header and count the recognized types.

			Files that are not valid objects, such as pack files and their indexes,
			are reported as diagnostics and left out of the counts.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Workers < 0 {
				return fmt.Errorf("workers cannot be negative: %d", opts.Workers)
			}

			if opts.Timeout < 0 {
				return fmt.Errorf("timeout cannot be negative: %v", opts.Timeout)
			}

			return runWalk(cmd, *opts, pathArg(args))
		},
	}

	cmd.Flags().StringVar(&opts.ObjectsDir, "objects-dir", "", "Loose-object directory to scan instead of <path>/.git/objects")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "Number of classifier workers (0=GOMAXPROCS)")
	cmd.Flags().StringSliceVarP(&opts.Excludes, "exclude", "e", []string{}, "Regex patterns of paths to exclude (e.g., '/pack/')")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Require headers of the form '<type> <digits>'")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Stop the walk after this long and print partial counts (0=unlimited)")

	return cmd
}

func newLibgitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "libgit [path]",
		Short: "Count all objects, packed included, through go-git",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLibgit(cmd, *opts, pathArg(args))
		},
	}
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return "."
	}

	return args[0]
}
