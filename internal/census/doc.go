// Package census counts the objects in a git object store.
//
// It walks the loose-object directory using fastwalk for parallel traversal,
// inflates each candidate file just far enough to read its "<type> <size>\x00"
// header, and folds the recognized types into per-kind counts. Files that do
// not inflate, or whose header is not one of blob, tree, commit or tag, are
// reported to the diagnostics logger and skipped.
package census
