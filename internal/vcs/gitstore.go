package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/pmezard/go-difflib/difflib"
)

// GitStore implements Store on top of go-git. The backing store is a
// bare repository; the working checkout is a regular clone pushing
// back to it on every commit.
type GitStore struct {
	Author string
	Email  string
}

// NewGitStore returns a GitStore committing under the given identity.
func NewGitStore(author, email string) *GitStore {
	return &GitStore{Author: author, Email: email}
}

func (g *GitStore) InitStore(storePath string) error {
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return fmt.Errorf("failed to create store parent directory: %w", err)
	}
	_, err := git.PlainInit(storePath, true)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to init store %s: %w", storePath, err)
	}
	return nil
}

func (g *GitStore) Checkout(storePath, workDir string) error {
	if _, err := git.PlainOpen(workDir); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(workDir), 0o755); err != nil {
		return fmt.Errorf("failed to create checkout parent directory: %w", err)
	}

	_, err := git.PlainClone(workDir, false, &git.CloneOptions{URL: storePath})
	if err == nil {
		return nil
	}
	if !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return fmt.Errorf("failed to clone %s: %w", storePath, err)
	}

	// A fresh store has no commits to clone. Init the checkout in
	// place and wire the store as its origin. The failed clone may
	// have left an initialized directory behind.
	repo, err := git.PlainInit(workDir, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(workDir)
	}
	if err != nil {
		return fmt.Errorf("failed to init checkout %s: %w", workDir, err)
	}
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{storePath},
	})
	if err != nil && !errors.Is(err, git.ErrRemoteExists) {
		return fmt.Errorf("failed to add origin remote: %w", err)
	}
	return nil
}

func (g *GitStore) Add(workDir, relPath string) error {
	repo, err := git.PlainOpen(workDir)
	if err != nil {
		return fmt.Errorf("failed to open checkout: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if _, err := wt.Add(relPath); err != nil {
		return fmt.Errorf("failed to stage %s: %w", relPath, err)
	}
	return nil
}

func (g *GitStore) Commit(workDir, relPath, message string) error {
	repo, err := git.PlainOpen(workDir)
	if err != nil {
		return fmt.Errorf("failed to open checkout: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if _, err := wt.Add(relPath); err != nil {
		return fmt.Errorf("failed to stage %s: %w", relPath, err)
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.Author,
			Email: g.Email,
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		// Unchanged archives are committed every cycle; a clean
		// tree is not an error.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", relPath, err)
	}

	err = repo.Push(&git.PushOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push to store: %w", err)
	}
	return nil
}

func (g *GitStore) CatHead(workDir, relPath string) (string, error) {
	commit, err := headCommit(workDir)
	if err != nil {
		return "", err
	}
	f, err := commit.File(relPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s at HEAD: %w", relPath, err)
	}
	content, err := f.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read %s at HEAD: %w", relPath, err)
	}
	return content, nil
}

func (g *GitStore) DiffAgainstHead(workDir, relPath string) (string, error) {
	head, err := g.CatHead(workDir, relPath)
	if err != nil {
		return "", err
	}
	work, err := os.ReadFile(filepath.Join(workDir, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read working copy of %s: %w", relPath, err)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(head),
		B:        difflib.SplitLines(string(work)),
		FromFile: relPath + "@HEAD",
		ToFile:   relPath,
		Context:  3,
	})
}

func headCommit(workDir string) (*object.Commit, error) {
	repo, err := git.PlainOpen(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkout: %w", err)
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrNoHead
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	return commit, nil
}
