// Package werrors carries the error taxonomy for a backup run: every
// failure is categorized so the log and the run summary can tell an
// inventory problem from a transport timeout without string matching.
package werrors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeInventory    ErrorType = "Inventory"
	ErrorTypeProvisioning ErrorType = "Provisioning"
	ErrorTypeTransport    ErrorType = "Transport"
	ErrorTypeTransfer     ErrorType = "Transfer"
	ErrorTypeCommit       ErrorType = "Commit"
	ErrorTypeNVRAM        ErrorType = "NVRAM"
)

// RunError is an error tagged with its category and the device context
// needed to diagnose it without re-running the batch.
type RunError struct {
	Type   ErrorType
	Device string
	IP     string
	Group  string
	Msg    string
	Cause  error
}

func (e *RunError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Type, e.Msg)
	if e.Device != "" {
		s = fmt.Sprintf("%s (device=%s ip=%s)", s, e.Device, e.IP)
	}
	if e.Cause != nil {
		s = fmt.Sprintf("%s: %v", s, e.Cause)
	}
	return s
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// New creates a RunError without device context.
func New(errType ErrorType, msg string) *RunError {
	return &RunError{Type: errType, Msg: msg}
}

// Wrap creates a RunError wrapping a cause.
func Wrap(errType ErrorType, msg string, cause error) *RunError {
	return &RunError{Type: errType, Msg: msg, Cause: cause}
}

// ForDevice attaches device identity to the error.
func (e *RunError) ForDevice(name, ip, group string) *RunError {
	e.Device = name
	e.IP = ip
	e.Group = group
	return e
}

// IsType reports whether err is a RunError of the given category.
func IsType(err error, errType ErrorType) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Type == errType
	}
	return false
}
