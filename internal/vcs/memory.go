package vcs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
)

// MemoryStore implements Store without a real version-control backend.
// Working files still live on disk; committed revisions and the commit
// log are kept in memory. Used by tests.
type MemoryStore struct {
	mu sync.Mutex
	// committed maps workDir/relPath to the last committed content.
	committed map[string]string
	// Messages records every commit message in order.
	Messages []string
	// Staged records every Add call.
	Staged []string
	// FailCommits makes Commit return an error when set.
	FailCommits bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{committed: make(map[string]string)}
}

func (m *MemoryStore) InitStore(storePath string) error {
	return os.MkdirAll(storePath, 0o755)
}

func (m *MemoryStore) Checkout(storePath, workDir string) error {
	return os.MkdirAll(workDir, 0o755)
}

func (m *MemoryStore) Add(workDir, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Staged = append(m.Staged, relPath)
	return nil
}

func (m *MemoryStore) Commit(workDir, relPath, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommits {
		return fmt.Errorf("commit rejected")
	}
	content, err := os.ReadFile(filepath.Join(workDir, relPath))
	if err != nil {
		return fmt.Errorf("failed to read working copy: %w", err)
	}
	m.committed[filepath.Join(workDir, relPath)] = string(content)
	m.Messages = append(m.Messages, message)
	return nil
}

func (m *MemoryStore) CatHead(workDir, relPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.committed[filepath.Join(workDir, relPath)]
	if !ok {
		return "", ErrNoHead
	}
	return content, nil
}

func (m *MemoryStore) DiffAgainstHead(workDir, relPath string) (string, error) {
	head, err := m.CatHead(workDir, relPath)
	if err != nil {
		return "", err
	}
	work, err := os.ReadFile(filepath.Join(workDir, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read working copy: %w", err)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(head),
		B:        difflib.SplitLines(string(work)),
		FromFile: relPath + "@HEAD",
		ToFile:   relPath,
		Context:  3,
	})
}
