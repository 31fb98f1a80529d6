// Package orchestrator drives the per-device backup workflow: ensure
// the group repo, trigger the SNMP remote write, wait for the TFTP
// artifact, classify against the archive, commit, and conditionally
// persist the device config to NVRAM. A failure abandons only the
// device it happened on.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/switchback-net/switchback/internal/differ"
	"github.com/switchback-net/switchback/internal/logger"
	"github.com/switchback-net/switchback/internal/snmptrigger"
	"github.com/switchback-net/switchback/internal/transfer"
	"github.com/switchback-net/switchback/internal/vcs"
	"github.com/switchback-net/switchback/internal/werrors"
	"github.com/switchback-net/switchback/pkg/types"
)

// Orchestrator runs the backup state machine for single devices.
type Orchestrator struct {
	repos   *vcs.Manager
	snmp    snmptrigger.Transport
	watcher *transfer.Watcher
	differ  *differ.Differ
	log     logger.Logger

	// NVRAMWrite enables the post-commit write-to-NVRAM on changed
	// devices.
	NVRAMWrite bool
	// DryRun stops after repo provisioning and archive inspection.
	DryRun bool
}

// New wires an Orchestrator from its collaborators.
func New(repos *vcs.Manager, snmp snmptrigger.Transport, watcher *transfer.Watcher, d *differ.Differ, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		repos:      repos,
		snmp:       snmp,
		watcher:    watcher,
		differ:     d,
		log:        log,
		NVRAMWrite: true,
	}
}

// ProcessDevice runs the full per-device sequence. The returned result
// always carries the device; Err is set when the device was abandoned
// before its archive could be updated. Commit failures do not set Err:
// the artifact already landed on disk and the device counts as
// processed.
func (o *Orchestrator) ProcessDevice(ctx context.Context, dev types.Device) types.DeviceResult {
	start := time.Now()
	res := types.DeviceResult{Device: dev}
	log := o.log.WithFields(map[string]interface{}{
		"device": dev.Name,
		"ip":     dev.IP,
		"group":  dev.Group,
	})
	log.Info("processing device")

	defer func() {
		res.Duration = time.Since(start)
	}()

	// EnsureRepo
	if err := o.repos.Ensure(dev.Group); err != nil {
		log.Error("group provisioning failed", err)
		res.Err = err
		return res
	}

	// NewOrExisting
	archivePath := o.repos.ArchivePath(dev.Group, dev.Name)
	prevContent, statErr := os.ReadFile(archivePath)
	isNew := os.IsNotExist(statErr)
	if statErr != nil && !isNew {
		log.Error("cannot read archive", statErr)
		res.Err = werrors.Wrap(werrors.ErrorTypeProvisioning, "cannot read archive", statErr).
			ForDevice(dev.Name, dev.IP, dev.Group)
		return res
	}

	if o.DryRun {
		log.Info("dry run, skipping transfer")
		return res
	}

	// Transfer
	content, err := o.retrieve(ctx, dev)
	if err != nil {
		log.Error(fmt.Sprintf("error backing up switch %s %s", dev.Name, dev.IP), err)
		res.Err = err
		return res
	}

	// Classify + Commit mutate the group checkout; one writer per
	// group at a time.
	lock := o.repos.GroupLock(dev.Group)
	lock.Lock()
	classification, report, err := o.classifyAndArchive(dev, archivePath, isNew, string(prevContent), content)
	if err != nil {
		lock.Unlock()
		log.Error(fmt.Sprintf("error backing up switch %s %s", dev.Name, dev.IP), err)
		res.Err = err
		return res
	}
	res.Classification = classification
	res.DiffReport = report

	message := fmt.Sprintf("%s %s %s", dev.Name, dev.IP, time.Now().Format(time.RFC1123))
	if err := o.repos.Store().Commit(o.repos.CheckoutPath(dev.Group), dev.Name, message); err != nil {
		log.Error("commit failed", werrors.Wrap(werrors.ErrorTypeCommit, "commit failed", err))
	} else {
		res.Committed = true
	}
	lock.Unlock()

	// ConditionalNVRAMWrite: changed devices only, best effort.
	if classification == types.ClassificationChanged && o.NVRAMWrite {
		if err := o.snmp.CommitToNVRAM(ctx, dev.IP, dev.Community); err != nil {
			log.Warn(fmt.Sprintf("nvram write failed: %v", err))
		} else {
			res.NVRAMWritten = true
		}
	}

	log.WithField("classification", string(classification)).Info("device processed")
	return res
}

// retrieve runs the transfer leg: token, SNMP trigger, artifact wait.
func (o *Orchestrator) retrieve(ctx context.Context, dev types.Device) (string, error) {
	token, err := o.watcher.Prepare()
	if err != nil {
		return "", err
	}
	if err := o.snmp.TriggerRemoteWrite(ctx, dev.IP, dev.Community, dev.LocalIP, token); err != nil {
		o.watcher.Cleanup(token)
		return "", err
	}
	// The SET acknowledgement does not mean the push finished; the
	// file arrives asynchronously over TFTP.
	content, err := o.watcher.Await(ctx, token)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// classifyAndArchive writes the retrieved config into the archive and
// classifies the device. Existing archives are overwritten regardless
// of the diff outcome; new archives are staged for version control.
func (o *Orchestrator) classifyAndArchive(dev types.Device, archivePath string, isNew bool, prevContent, newContent string) (types.Classification, string, error) {
	if isNew {
		if err := os.WriteFile(archivePath, []byte(newContent), 0o644); err != nil {
			return "", "", werrors.Wrap(werrors.ErrorTypeCommit, "failed to write archive", err).
				ForDevice(dev.Name, dev.IP, dev.Group)
		}
		if err := o.repos.Store().Add(o.repos.CheckoutPath(dev.Group), dev.Name); err != nil {
			return "", "", werrors.Wrap(werrors.ErrorTypeCommit, "failed to stage archive", err).
				ForDevice(dev.Name, dev.IP, dev.Group)
		}
		return types.ClassificationNew, "", nil
	}

	classification, report, err := o.differ.Compare(dev, prevContent, newContent)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(archivePath, []byte(newContent), 0o644); err != nil {
		return "", "", werrors.Wrap(werrors.ErrorTypeCommit, "failed to write archive", err).
			ForDevice(dev.Name, dev.IP, dev.Group)
	}
	return classification, report, nil
}
