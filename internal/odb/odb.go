// Package odb counts repository objects through go-git's object database.
//
// Unlike the census scanner it sees packed objects as well as loose ones, which
// makes it the reference the loose-object scanner is checked against.
package odb

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/idelchi/objcensus/internal/census"
)

// ErrDiscovery is returned when no repository can be found or opened at a path.
var ErrDiscovery = errors.New("repository discovery failed")

// Counter counts objects by enumerating the object database of the
// repository that contains a path.
type Counter struct {
	// Logger receives diagnostics. Nil discards them.
	Logger census.Logger
}

var _ census.Counter = (*Counter)(nil)

// kindOf maps a go-git object type onto a census kind.
func kindOf(t plumbing.ObjectType) (census.Kind, bool) {
	switch t {
	case plumbing.BlobObject:
		return census.Blob, true
	case plumbing.TreeObject:
		return census.Tree, true
	case plumbing.CommitObject:
		return census.Commit, true
	case plumbing.TagObject:
		return census.Tag, true
	default:
		return 0, false
	}
}

// Count discovers the repository containing path, searching parent
// directories for a .git entry, and counts every loose and packed object.
func (c *Counter) Count(ctx context.Context, path string) (census.Counts, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if path == "" {
		path = "."
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return census.Counts{}, fmt.Errorf("%w: %q: %w", ErrDiscovery, path, err)
	}

	iter, err := repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return census.Counts{}, fmt.Errorf("listing objects: %w", err)
	}

	var counts census.Counts

	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind, ok := kindOf(obj.Type())
		if !ok {
			log.Error("encountered object of unexpected type",
				zap.Stringer("hash", obj.Hash()),
				zap.Stringer("type", obj.Type()))

			return nil
		}

		log.Info("enumerated object", zap.Stringer("hash", obj.Hash()), zap.Stringer("kind", kind))
		counts.Add(kind)

		return nil
	})
	if err != nil {
		return counts, fmt.Errorf("enumerating objects: %w", err)
	}

	return counts, nil
}
