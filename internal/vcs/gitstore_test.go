package vcs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func gitFixture(t *testing.T) (*GitStore, string, string) {
	t.Helper()
	tmpDir := t.TempDir()
	store := NewGitStore("switchback", "switchback@localhost")
	storePath := filepath.Join(tmpDir, "store", "lab.git")
	workDir := filepath.Join(tmpDir, "work", "lab")

	if err := store.InitStore(storePath); err != nil {
		t.Fatalf("init store failed: %v", err)
	}
	if err := store.Checkout(storePath, workDir); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return store, storePath, workDir
}

func TestGitStoreProvisioningIdempotent(t *testing.T) {
	store, storePath, workDir := gitFixture(t)

	if err := store.InitStore(storePath); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if err := store.Checkout(storePath, workDir); err != nil {
		t.Fatalf("second checkout failed: %v", err)
	}
}

func TestGitStoreCommitAndCatHead(t *testing.T) {
	store, _, workDir := gitFixture(t)

	if err := os.WriteFile(filepath.Join(workDir, "sw1"), []byte("config-A\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Add(workDir, "sw1"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := store.Commit(workDir, "sw1", "sw1 10.0.0.1 initial"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	content, err := store.CatHead(workDir, "sw1")
	if err != nil {
		t.Fatalf("cat head failed: %v", err)
	}
	if content != "config-A\n" {
		t.Errorf("expected committed content, got %q", content)
	}
}

func TestGitStoreCatHeadOnEmptyStore(t *testing.T) {
	store, _, workDir := gitFixture(t)

	_, err := store.CatHead(workDir, "sw1")
	if !errors.Is(err, ErrNoHead) {
		t.Fatalf("expected ErrNoHead, got %v", err)
	}
}

func TestGitStoreDiffAgainstHead(t *testing.T) {
	store, _, workDir := gitFixture(t)

	if err := os.WriteFile(filepath.Join(workDir, "sw1"), []byte("interface eth0\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Commit(workDir, "sw1", "sw1 initial"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "sw1"), []byte("interface eth1\n"), 0o644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	diff, err := store.DiffAgainstHead(workDir, "sw1")
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(diff, "-interface eth0") || !strings.Contains(diff, "+interface eth1") {
		t.Errorf("unexpected diff: %q", diff)
	}
}

func TestGitStoreSecondCommitAsModification(t *testing.T) {
	store, storePath, workDir := gitFixture(t)

	path := filepath.Join(workDir, "sw1")
	if err := os.WriteFile(path, []byte("v1\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Commit(workDir, "sw1", "sw1 v1"); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("v2\n"), 0o644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := store.Commit(workDir, "sw1", "sw1 v2"); err != nil {
		t.Fatalf("second commit failed: %v", err)
	}

	content, err := store.CatHead(workDir, "sw1")
	if err != nil {
		t.Fatalf("cat head failed: %v", err)
	}
	if content != "v2\n" {
		t.Errorf("expected updated content at HEAD, got %q", content)
	}

	// A fresh checkout of the store sees the pushed history.
	otherWork := filepath.Join(filepath.Dir(workDir), "lab-verify")
	if err := store.Checkout(storePath, otherWork); err != nil {
		t.Fatalf("verification checkout failed: %v", err)
	}
	content, err = store.CatHead(otherWork, "sw1")
	if err != nil {
		t.Fatalf("cat head in verification checkout failed: %v", err)
	}
	if content != "v2\n" {
		t.Errorf("expected pushed content in store, got %q", content)
	}
}
