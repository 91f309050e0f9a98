package dispatch

import (
	"errors"
	"fmt"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/tracker"
)

// ErrorClass groups dispatch failures by what a caller can do about them.
type ErrorClass string

const (
	ClassNone        ErrorClass = ""
	ClassSetup       ErrorClass = "setup"
	ClassUnavailable ErrorClass = "unavailable"
	ClassExecution   ErrorClass = "execution"
	ClassResource    ErrorClass = "resource"
	ClassFault       ErrorClass = "fault"
)

// SetupError is returned when a dispatch fails before any tile runs: an
// invalid declaration, a size mismatch, a bad scatter, or a failed transfer.
type SetupError struct {
	Worklet string
	Device  device.ID
	Err     error
}

func (e *SetupError) Error() string {
	if e.Device == device.Undefined {
		return fmt.Sprintf("setup %s: %v", e.Worklet, e.Err)
	}
	return fmt.Sprintf("setup %s on %s: %v", e.Worklet, e.Device, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ExecutionError is returned when a worklet raised an error. Message is the
// first error raised, possibly truncated.
type ExecutionError struct {
	Worklet string
	Device  device.ID
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s on %s: %s", e.Worklet, e.Device, e.Message)
}

// DeviceFaultError is returned when a tile crashed. The device has been
// disabled in the tracker by the time the caller sees this.
type DeviceFaultError struct {
	Worklet string
	Fault   *device.FaultError
}

func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.Worklet, e.Fault)
}

func (e *DeviceFaultError) Unwrap() error { return e.Fault }

// Classify reports the class of a dispatch error.
func Classify(err error) ErrorClass {
	var (
		execErr  *ExecutionError
		faultErr *DeviceFaultError
	)
	switch {
	case err == nil:
		return ClassNone
	case errors.As(err, &faultErr):
		return ClassFault
	case errors.As(err, &execErr):
		return ClassExecution
	case errors.Is(err, device.ErrOutOfMemory):
		return ClassResource
	case unavailable(err):
		return ClassUnavailable
	default:
		return ClassSetup
	}
}

// unavailable reports whether err means the device cannot be used, so a
// dispatch may move on to the next preferred device.
func unavailable(err error) bool {
	return errors.Is(err, device.ErrUnavailable) ||
		errors.Is(err, device.ErrDisabled) ||
		errors.Is(err, device.ErrUnknown) ||
		errors.Is(err, tracker.ErrNoDevice)
}
