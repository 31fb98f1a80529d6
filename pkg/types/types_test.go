package types

import (
	"errors"
	"testing"
)

func TestRunSummaryCounts(t *testing.T) {
	summary := RunSummary{
		Results: []DeviceResult{
			{Classification: ClassificationNew},
			{Classification: ClassificationChanged},
			{Classification: ClassificationChanged},
			{Classification: ClassificationUnchanged},
			{Err: errors.New("timeout")},
		},
	}

	added, changed, unchanged, failed := summary.Counts()
	if added != 1 || changed != 2 || unchanged != 1 || failed != 1 {
		t.Errorf("unexpected counts: %d %d %d %d", added, changed, unchanged, failed)
	}
	if !summary.HasFailures() {
		t.Error("expected HasFailures to be true")
	}
}

func TestRunSummaryNoFailures(t *testing.T) {
	summary := RunSummary{
		Results: []DeviceResult{{Classification: ClassificationNew}},
	}
	if summary.HasFailures() {
		t.Error("expected HasFailures to be false")
	}
}

func TestDeviceResultFailed(t *testing.T) {
	if (DeviceResult{}).Failed() {
		t.Error("zero result must not be failed")
	}
	if !(DeviceResult{Err: errors.New("x")}).Failed() {
		t.Error("result with error must be failed")
	}
}
