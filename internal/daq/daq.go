// Package daq models the National Instruments USB-6210 the platform and EMG
// amplifiers are wired into. The device is driven through a single analog
// input task: voltage channels measured referenced single-ended against GND,
// a hardware sample clock in continuous acquisition mode, and one frame per
// read. Task lifecycle violations are reported with the sentinel errors
// below so callers can tell operator mistakes from hardware faults.
package daq

import (
	"context"
	"errors"
	"fmt"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
)

// Voltage limits of the analog inputs. The Gen5 amplifier outputs +/- 5V.
const (
	MinVoltage = -5.0
	MaxVoltage = 5.0
)

var (
	// ErrTaskExists is returned when a task is created while one is active.
	ErrTaskExists = errors.New("daq: task already exists")
	// ErrNoTask is returned by operations that need a task when none exists.
	ErrNoTask = errors.New("daq: no task has been created")
	// ErrAlreadyRunning is returned when a running task is started again.
	ErrAlreadyRunning = errors.New("daq: task already started")
	// ErrNotRunning is returned when a stopped task is stopped or read.
	ErrNotRunning = errors.New("daq: task is not running")
	// ErrInvalidChannels is returned when a task is created with an empty
	// channel specification.
	ErrInvalidChannels = errors.New("daq: invalid channel specification")
)

// Device is one DAQ unit. Implementations must be safe for use from the
// sampling worker goroutine plus the HTTP control surface.
type Device interface {
	// Name reports the device identifier, e.g. "Dev1".
	Name() string

	// SelfTest runs the device self test. Called at open and on demand by
	// the maintenance job; must not require an active task.
	SelfTest() error

	// CreateTask adds the analog input channels (e.g. "ai1:6") to a fresh
	// task and configures the sample clock at the given rate in Hz.
	CreateTask(channels string, rate float64) error

	// Start begins acquisition on the created task.
	Start() error

	// Stop halts acquisition but keeps the task so it can be restarted.
	Stop() error

	// Close clears the task entirely. Closing without a task is a no-op;
	// a running task is stopped first.
	Close() error

	// Read returns the next frame from the device buffer.
	Read(ctx context.Context) (platform.Frame, error)

	// Rate reports the configured sample clock rate in Hz, 0 if no task.
	Rate() float64
}

// Open returns a device for the configured driver. The NI-DAQmx runtime has
// no Go binding, so hardware access goes through a driver build; the "sim"
// driver is always available and is what tests and detached benches use.
func Open(driver, name string) (Device, error) {
	switch driver {
	case "sim":
		return NewSimulated(name), nil
	default:
		return nil, fmt.Errorf("daq: unknown driver %q", driver)
	}
}

// taskState tracks the create/start lifecycle shared by drivers.
type taskState struct {
	hasTask bool
	running bool
}

func (t *taskState) create() error {
	if t.hasTask {
		return ErrTaskExists
	}
	t.hasTask = true
	return nil
}

func (t *taskState) start() error {
	if !t.hasTask {
		return ErrNoTask
	}
	if t.running {
		return ErrAlreadyRunning
	}
	t.running = true
	return nil
}

func (t *taskState) stop() error {
	if !t.hasTask {
		return ErrNoTask
	}
	if !t.running {
		return ErrNotRunning
	}
	t.running = false
	return nil
}

func (t *taskState) close() {
	t.hasTask = false
	t.running = false
}

func (t *taskState) readable() error {
	if !t.hasTask {
		return ErrNoTask
	}
	if !t.running {
		return ErrNotRunning
	}
	return nil
}
