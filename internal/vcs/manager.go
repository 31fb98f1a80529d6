package vcs

import (
	"path/filepath"
	"sync"

	"github.com/switchback-net/switchback/internal/werrors"
)

// Manager provisions per-group stores and checkouts and hands out the
// per-group locks that serialize commits within a group. Ensure is
// memoized: each group is provisioned at most once per run, and a
// provisioning failure fails every later device of that group without
// retrying.
type Manager struct {
	store    Store
	storeDir string
	workDir  string

	mu      sync.Mutex
	ensured map[string]error
	locks   map[string]*sync.Mutex
}

// NewManager returns a Manager placing group stores under storeDir and
// working checkouts under workDir.
func NewManager(store Store, storeDir, workDir string) *Manager {
	return &Manager{
		store:    store,
		storeDir: storeDir,
		workDir:  workDir,
		ensured:  make(map[string]error),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Store exposes the underlying version-control backend.
func (m *Manager) Store() Store {
	return m.store
}

// StorePath returns the backing store location for a group.
func (m *Manager) StorePath(group string) string {
	return filepath.Join(m.storeDir, group+".git")
}

// CheckoutPath returns the working checkout location for a group.
func (m *Manager) CheckoutPath(group string) string {
	return filepath.Join(m.workDir, group)
}

// ArchivePath returns the archive file location for a device.
func (m *Manager) ArchivePath(group, device string) string {
	return filepath.Join(m.CheckoutPath(group), device)
}

// Ensure provisions the group's store and checkout on first use.
// Idempotent and safe to call once per device every run.
func (m *Manager) Ensure(group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, done := m.ensured[group]; done {
		return err
	}

	err := m.provision(group)
	m.ensured[group] = err
	return err
}

func (m *Manager) provision(group string) error {
	if err := m.store.InitStore(m.StorePath(group)); err != nil {
		return werrors.Wrap(werrors.ErrorTypeProvisioning, "failed to init store for group "+group, err)
	}
	if err := m.store.Checkout(m.StorePath(group), m.CheckoutPath(group)); err != nil {
		return werrors.Wrap(werrors.ErrorTypeProvisioning, "failed to create checkout for group "+group, err)
	}
	return nil
}

// GroupLock returns the mutex guarding the group's working checkout.
// At most one device may mutate a group's checkout at a time.
func (m *Manager) GroupLock(group string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[group]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[group] = lock
	}
	return lock
}
