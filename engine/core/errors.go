package core

import (
	"errors"
	"fmt"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrNotInitialized   = errors.New("subsystem not initialized")
	ErrAssertion        = errors.New("assertion failed")
	ErrUnknown          = errors.New("unknown")
)

// FatalError is the payload of every unrecoverable abort raised by the engine.
// Code holds the native result code when the failure came from a driver call.
type FatalError struct {
	Op   string
	Code int64
	Err  error
}

func (e *FatalError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("fatal: %s (code 0x%08X): %v", e.Op, uint32(e.Code), e.Err)
	}
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// coder is implemented by native errors that carry a driver result code.
type coder interface {
	ResultCode() int64
}

// Fatal logs the failing operation and aborts by panicking with a *FatalError.
// The process terminates with the diagnostic unless a caller recovers it.
func Fatal(op string, err error) {
	fe := &FatalError{Op: op, Err: err}
	var c coder
	if errors.As(err, &c) {
		fe.Code = c.ResultCode()
	}
	LogError("%s", fe)
	panic(fe)
}

func Fatalf(op string, format string, args ...interface{}) {
	Fatal(op, fmt.Errorf(format, args...))
}

// Assert aborts with ErrAssertion when cond does not hold.
func Assert(cond bool, op string, format string, args ...interface{}) {
	if !cond {
		Fatal(op, fmt.Errorf("%w: %s", ErrAssertion, fmt.Sprintf(format, args...)))
	}
}
