package types

import "time"

// Device is one entry from the inventory: a switch we back up.
// Immutable once produced by the loader. Name doubles as the archive
// filename inside the group's checkout, so it must be unique per group.
type Device struct {
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Community string `json:"community"`
	Group     string `json:"group"`
	// LocalIP is the address the device pushes its config back to.
	// Empty when the configured interface could not be resolved; the
	// SNMP trigger will then time out and the device is skipped.
	LocalIP string `json:"local_ip"`
}

// Classification is the outcome of comparing a freshly retrieved config
// against the archived revision.
type Classification string

const (
	// ClassificationNew means no archive existed for the device yet.
	ClassificationNew Classification = "new"
	// ClassificationChanged means the normalized configs differ.
	ClassificationChanged Classification = "changed"
	// ClassificationUnchanged means only header/volatile lines differ.
	ClassificationUnchanged Classification = "unchanged"
)

// DeviceResult records how a single device fared during a run.
type DeviceResult struct {
	Device         Device         `json:"device"`
	Classification Classification `json:"classification,omitempty"`
	Committed      bool           `json:"committed"`
	NVRAMWritten   bool           `json:"nvram_written"`
	DiffReport     string         `json:"diff_report,omitempty"`
	Err            error          `json:"-"`
	Duration       time.Duration  `json:"duration"`
}

// Failed reports whether the device was abandoned before its archive
// could be updated.
func (r DeviceResult) Failed() bool {
	return r.Err != nil
}

// RunSummary aggregates DeviceResults for one backup cycle.
type RunSummary struct {
	StartedAt time.Time      `json:"started_at"`
	Elapsed   time.Duration  `json:"elapsed"`
	Results   []DeviceResult `json:"results"`
}

// Counts returns the number of new, changed, unchanged and failed
// devices in the run.
func (s RunSummary) Counts() (added, changed, unchanged, failed int) {
	for _, r := range s.Results {
		if r.Failed() {
			failed++
			continue
		}
		switch r.Classification {
		case ClassificationNew:
			added++
		case ClassificationChanged:
			changed++
		case ClassificationUnchanged:
			unchanged++
		}
	}
	return added, changed, unchanged, failed
}

// HasFailures reports whether any device in the run failed.
func (s RunSummary) HasFailures() bool {
	for _, r := range s.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}
