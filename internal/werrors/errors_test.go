package werrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRunErrorMessage(t *testing.T) {
	err := Wrap(ErrorTypeTransport, "remote write trigger failed", errors.New("timeout")).
		ForDevice("sw1", "10.0.0.1", "lab")

	msg := err.Error()
	for _, want := range []string{"Transport", "sw1", "10.0.0.1", "timeout"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestRunErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrorTypeProvisioning, "failed to init store", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrorTypeCommit, "commit failed"))

	if !IsType(err, ErrorTypeCommit) {
		t.Error("expected IsType to match through wrapping")
	}
	if IsType(err, ErrorTypeTransport) {
		t.Error("expected IsType to reject other categories")
	}
	if IsType(errors.New("plain"), ErrorTypeCommit) {
		t.Error("expected IsType to reject plain errors")
	}
}
