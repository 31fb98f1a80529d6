// Package transfer correlates an SNMP-triggered config push with the
// file the device drops over TFTP. The filename is a locally generated
// token created before the trigger is sent, so the device always has a
// target to write to.
package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/switchback-net/switchback/internal/logger"
	"github.com/switchback-net/switchback/internal/werrors"
)

// pollInterval bounds how stale the watcher's view of the drop file can
// get when fsnotify events are missed (TFTP servers on some platforms
// write through paths inotify does not see).
const pollInterval = 500 * time.Millisecond

// TokenGenerator produces the unique drop filename for one transfer.
type TokenGenerator func() string

// DefaultToken returns a filesystem-unique token. Uniqueness is what
// matters here, not unpredictability.
func DefaultToken() string {
	return "cfg-" + uuid.NewString()
}

// Watcher prepares transfer tokens in the drop directory and waits for
// the device to fill them in.
type Watcher struct {
	DropDir  string
	Timeout  time.Duration
	NewToken TokenGenerator

	log logger.Logger
}

// NewWatcher returns a Watcher over dropDir with the given wait budget.
func NewWatcher(dropDir string, timeout time.Duration, log logger.Logger) *Watcher {
	return &Watcher{
		DropDir:  dropDir,
		Timeout:  timeout,
		NewToken: DefaultToken,
		log:      log,
	}
}

// Prepare creates an empty, world-writable target file and returns its
// token. The file must exist before the SNMP trigger is sent: TFTP
// daemons commonly refuse to create files and only overwrite them.
func (w *Watcher) Prepare() (string, error) {
	token := w.NewToken()
	path := filepath.Join(w.DropDir, token)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return "", werrors.Wrap(werrors.ErrorTypeTransfer, "failed to create drop file", err)
	}
	f.Close()
	// The create mode is filtered through the umask; the device
	// writes as an unprivileged foreign user, so force it open.
	if err := os.Chmod(path, 0o666); err != nil {
		os.Remove(path)
		return "", werrors.Wrap(werrors.ErrorTypeTransfer, "failed to open up drop file permissions", err)
	}
	return token, nil
}

// Await blocks until the device has delivered the file named by token,
// then reads and deletes it. The transfer is considered complete once
// the file is non-empty and its size is stable across one poll
// interval (TFTP writes are not atomic). An empty delivery is
// deliberately never accepted: a switch has no zero-byte running
// config, so an empty file only ever means the push has not started
// or failed, and the wait runs out the timeout. On timeout the drop
// file is removed best-effort and an error is returned.
func (w *Watcher) Await(ctx context.Context, token string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	path := filepath.Join(w.DropDir, token)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, werrors.Wrap(werrors.ErrorTypeTransfer, "failed to create watcher", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.DropDir); err != nil {
		return nil, werrors.Wrap(werrors.ErrorTypeTransfer, "failed to watch drop directory", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastSize := int64(-1)
	for {
		select {
		case <-ctx.Done():
			w.Cleanup(token)
			return nil, werrors.Wrap(werrors.ErrorTypeTransfer,
				fmt.Sprintf("transfer %s did not complete within %s", token, w.Timeout), ctx.Err())
		case err := <-watcher.Errors:
			w.log.WithField("token", token).Error("transfer: watch error", err)
		case <-watcher.Events:
			// An event alone does not mean the push finished;
			// the ticker's size-stability check decides.
		case <-ticker.C:
			size, ok := fileSize(path)
			if !ok {
				// The TFTP server may replace the file; absence
				// mid-transfer is transient.
				lastSize = -1
				continue
			}
			if size > 0 && size == lastSize {
				content, err := os.ReadFile(path)
				if err != nil {
					w.Cleanup(token)
					return nil, werrors.Wrap(werrors.ErrorTypeTransfer, "failed to read delivered file", err)
				}
				w.Cleanup(token)
				return content, nil
			}
			lastSize = size
		}
	}
}

// Cleanup removes the drop file, best effort. Never leaves an artifact
// past one device iteration.
func (w *Watcher) Cleanup(token string) {
	if err := os.Remove(filepath.Join(w.DropDir, token)); err != nil && !os.IsNotExist(err) {
		w.log.WithField("token", token).Error("transfer: cleanup failed", err)
	}
}

func fileSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}
