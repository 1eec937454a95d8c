package driver

import "fmt"

// Result is a native status code, HRESULT-like: negative (high bit set) means failure.
type Result uint32

const (
	ResultOK            Result = 0x00000000
	ResultFail          Result = 0x80004005
	ResultInvalidArg    Result = 0x80070057
	ResultOutOfMemory   Result = 0x8007000E
	ResultNotFound      Result = 0x887A0002
	ResultUnsupported   Result = 0x887A0004
	ResultDeviceRemoved Result = 0x887A0005
	ResultInvalidCall   Result = 0x887A0001
	ResultNotInstalled  Result = 0x887A0022
)

var resultNames = map[Result]string{
	ResultOK:            "S_OK",
	ResultFail:          "E_FAIL",
	ResultInvalidArg:    "E_INVALIDARG",
	ResultOutOfMemory:   "E_OUTOFMEMORY",
	ResultNotFound:      "NOT_FOUND",
	ResultUnsupported:   "UNSUPPORTED",
	ResultDeviceRemoved: "DEVICE_REMOVED",
	ResultInvalidCall:   "INVALID_CALL",
	ResultNotInstalled:  "NOT_INSTALLED",
}

func (r Result) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return fmt.Sprintf("0x%08X", uint32(r))
}

func (r Result) Failed() bool {
	return r&0x80000000 != 0
}

// Error is returned by every failing driver call.
type Error struct {
	Op     string
	Code   Result
	Detail string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed with %s", e.Op, e.Code)
	if e.Op == "" {
		msg = e.Code.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ResultCode exposes the native code to the engine's fatal error reporting.
func (e *Error) ResultCode() int64 {
	return int64(e.Code)
}

// Is matches any *Error carrying the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Code == e.Code
}

var (
	ErrFail          = &Error{Code: ResultFail}
	ErrInvalidArg    = &Error{Code: ResultInvalidArg}
	ErrOutOfMemory   = &Error{Code: ResultOutOfMemory}
	ErrNotFound      = &Error{Code: ResultNotFound}
	ErrUnsupported   = &Error{Code: ResultUnsupported}
	ErrDeviceRemoved = &Error{Code: ResultDeviceRemoved}
	ErrInvalidCall   = &Error{Code: ResultInvalidCall}
	ErrNotInstalled  = &Error{Code: ResultNotInstalled}
)

func Errorf(op string, code Result, format string, args ...interface{}) error {
	return &Error{Op: op, Code: code, Detail: fmt.Sprintf(format, args...)}
}
