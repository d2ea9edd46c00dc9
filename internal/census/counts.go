package census

import (
	"context"
	"time"
)

// Kind is one of the four git object types.
type Kind int

const (
	// Blob is file content.
	Blob Kind = iota
	// Tree is a directory listing.
	Tree
	// Commit is a revision record.
	Commit
	// Tag is an annotated tag.
	Tag
)

// Kinds lists every kind in display order.
//
//nolint:gochecknoglobals // Fixed enumeration
var Kinds = []Kind{Blob, Tree, Commit, Tag}

// String returns the type name as it appears in an object header.
func (k Kind) String() string {
	switch k {
	case Blob:
		return "blob"
	case Tree:
		return "tree"
	case Commit:
		return "commit"
	case Tag:
		return "tag"
	default:
		return "unknown"
	}
}

// Counts holds the number of objects seen per kind.
type Counts struct {
	Blob   int64 `json:"blob"`
	Tree   int64 `json:"tree"`
	Commit int64 `json:"commit"`
	Tag    int64 `json:"tag"`
}

// Add records one object of kind k.
func (c *Counts) Add(k Kind) {
	switch k {
	case Blob:
		c.Blob++
	case Tree:
		c.Tree++
	case Commit:
		c.Commit++
	case Tag:
		c.Tag++
	}
}

// Merge adds every count of other into c.
func (c *Counts) Merge(other Counts) {
	c.Blob += other.Blob
	c.Tree += other.Tree
	c.Commit += other.Commit
	c.Tag += other.Tag
}

// Get returns the count for kind k.
func (c Counts) Get(k Kind) int64 {
	switch k {
	case Blob:
		return c.Blob
	case Tree:
		return c.Tree
	case Commit:
		return c.Commit
	case Tag:
		return c.Tag
	default:
		return 0
	}
}

// Total returns the sum of all four counts.
func (c Counts) Total() int64 {
	return c.Blob + c.Tree + c.Commit + c.Tag
}

// Fold sums the recognized outcomes. Malformed and failed outcomes are ignored.
func Fold(outcomes ...Outcome) Counts {
	var counts Counts

	for _, o := range outcomes {
		if o.Status == Recognized {
			counts.Add(o.Header.Kind)
		}
	}

	return counts
}

// Counter produces object counts for a repository location.
// The loose-object Scanner and the go-git backed odb.Counter both implement it.
type Counter interface {
	Count(ctx context.Context, root string) (Counts, error)
}

// Report holds the result of a loose-object scan.
type Report struct {
	// Counts are the recognized objects per kind.
	Counts Counts `json:"counts"`
	// Files is the number of regular files enumerated.
	Files int64 `json:"files"`
	// Bytes is the cumulative on-disk size of the enumerated files.
	Bytes int64 `json:"bytes"`
	// Malformed is the number of files that inflated but had no valid header.
	Malformed int64 `json:"malformed"`
	// IOErrors is the number of files that could not be opened or inflated.
	IOErrors int64 `json:"io_errors"`
	// TraversalErrors is the number of entries the walk could not visit.
	TraversalErrors int64 `json:"traversal_errors"`
	// Elapsed is the total time taken for the scan.
	Elapsed time.Duration `json:"elapsed"`
}

// Skipped returns the number of enumerated files that were not counted.
func (r *Report) Skipped() int64 {
	return r.Malformed + r.IOErrors
}
