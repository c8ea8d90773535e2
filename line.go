package ledchase

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Level is the logical state of an output line. Polarity is normalized by
// the driver: Active always means "LED lit", regardless of how the board is
// wired.
type Level bool

const (
	Inactive Level = false
	Active   Level = true
)

func (l Level) String() string {
	if l == Active {
		return "active"
	}
	return "inactive"
}

// Line is a single controllable binary output. Implementations live in
// internal/backend; the sequencer is a pure consumer of this interface.
//
// ConfigureOutput is the only fallible operation. Once a line is configured,
// SetLevel and Toggle are treated as always succeeding; implementations log
// and swallow transport errors instead of returning them.
type Line interface {
	// IsReady reports whether the underlying device is available.
	IsReady() bool
	// ConfigureOutput configures the line as a digital output driven to the
	// given initial level.
	ConfigureOutput(initial Level) error
	// SetLevel drives the line to the given level.
	SetLevel(Level)
	// Toggle inverts the line's current level.
	Toggle()
}

// Lines is an ordered, fixed set of output lines. It is built once at
// startup and owned exclusively by the sequencer.
type Lines []Line

// SetAll drives every line in the set to the given level.
func (ls Lines) SetAll(lvl Level) {
	for _, l := range ls {
		l.SetLevel(lvl)
	}
}

// NotReadyError is returned by Initialize when a line's GPIO device is not
// ready. Index is the position of the offending line in the set.
type NotReadyError struct {
	Index int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("LED%d: GPIO device not ready", e.Index)
}

// Code returns the numeric code for the failure. A missing device is always
// reported as ENODEV.
func (e *NotReadyError) Code() int { return int(unix.ENODEV) }

// ConfigureError is returned by Initialize when a line cannot be configured
// as an output. It carries the platform error code when one can be
// extracted from the underlying error.
type ConfigureError struct {
	Index int
	Err   error
}

func (e *ConfigureError) Error() string {
	return fmt.Sprintf("LED%d: configure failed: %s", e.Index, e.Err)
}

func (e *ConfigureError) Unwrap() error { return e.Err }

// Code returns the platform errno carried by the underlying error, or 1 if
// the error has no errno.
func (e *ConfigureError) Code() int { return errnoOf(e.Err) }

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 1
}
