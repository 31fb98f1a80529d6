// Package vcs versions the archived switch configurations. Each group
// maps to one backing store plus one working checkout; the Store
// interface is deliberately narrow so tests can substitute an
// in-memory implementation.
package vcs

import "errors"

// ErrNoHead is returned by CatHead and DiffAgainstHead when the store
// has no commits yet.
var ErrNoHead = errors.New("store has no commits")

// Store is the version-control surface the orchestrator needs.
// Paths passed to Add, Commit, CatHead and DiffAgainstHead are
// relative to the working checkout.
type Store interface {
	// InitStore creates an empty backing store at storePath. Calling
	// it on an existing store is a no-op.
	InitStore(storePath string) error

	// Checkout materializes a working checkout of storePath at
	// workDir. Calling it on an existing checkout is a no-op.
	Checkout(storePath, workDir string) error

	// Add stages a new file for the next commit.
	Add(workDir, relPath string) error

	// Commit records the current content of relPath with the given
	// message and propagates it to the backing store.
	Commit(workDir, relPath, message string) error

	// CatHead returns the content of relPath as of the last commit.
	CatHead(workDir, relPath string) (string, error)

	// DiffAgainstHead returns a unified diff between the last
	// committed revision of relPath and its working-tree content.
	DiffAgainstHead(workDir, relPath string) (string, error)
}
