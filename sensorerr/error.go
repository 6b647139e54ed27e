package sensorerr

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"strconv"
	"sync/atomic"
)

// Error pairs a Code with an optional message. A nil *Error means
// success; constructors never return a non-nil value for Success.
//
// Every non-nil Error carries a must-check obligation: it has to be
// inspected through one of its accessors (Code, Msg, Name, Error,
// IsError, IsFault, Is) or dismissed with Ignore before it becomes
// unreachable. An Error collected while the obligation is still
// outstanding is reported as an unchecked-error violation, exactly
// once, with the file:line where the value was created.
type Error struct {
	code    Code
	msg     string
	origin  string
	cause   error
	checked atomic.Bool
}

var _ error = (*Error)(nil)

// New returns an Error with the given code and message, or nil if
// code is Success. Constructing from a code that is neither Success
// nor a recognized error or fault fires an invalid-code violation
// before the value is returned.
func New(code Code, msg string) *Error {
	return newError(code, msg, callerOrigin(2))
}

// Newf is New with fmt.Sprintf message formatting.
func Newf(code Code, format string, args ...interface{}) *Error {
	return newError(code, fmt.Sprintf(format, args...), callerOrigin(2))
}

func newError(code Code, msg, origin string) *Error {
	if code == Success {
		return nil
	}
	e := &Error{code: code, msg: msg, origin: origin}
	if !code.Valid() {
		reportViolation(Violation{Kind: ViolationInvalidCode, Code: code, Msg: msg, Origin: origin})
	}
	runtime.SetFinalizer(e, finalizeError)
	return e
}

func finalizeError(e *Error) {
	if !e.checked.Load() {
		reportViolation(Violation{Kind: ViolationUnchecked, Code: e.code, Msg: e.msg, Origin: e.origin})
	}
}

func callerOrigin(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return path.Base(file) + ":" + strconv.Itoa(line)
}

// Code returns the error's code, marking the value as checked. A nil
// receiver returns Success.
func (e *Error) Code() Code {
	if e == nil {
		return Success
	}
	e.checked.Store(true)
	return e.code
}

// Msg returns the message without the code name, marking the value as
// checked.
func (e *Error) Msg() string {
	if e == nil {
		return ""
	}
	e.checked.Store(true)
	return e.msg
}

// Name returns the symbolic name of the error's code, marking the
// value as checked.
func (e *Error) Name() string {
	if e == nil {
		return Success.Name()
	}
	e.checked.Store(true)
	return e.code.Name()
}

// IsError reports whether the code is a recoverable error, marking
// the value as checked.
func (e *Error) IsError() bool {
	if e == nil {
		return false
	}
	e.checked.Store(true)
	return e.code.IsError()
}

// IsFault reports whether the code is a device fault, marking the
// value as checked.
func (e *Error) IsFault() bool {
	if e == nil {
		return false
	}
	e.checked.Store(true)
	return e.code.IsFault()
}

// Ignore dismisses the must-check obligation without reading anything.
func (e *Error) Ignore() {
	if e != nil {
		e.checked.Store(true)
	}
}

// Error renders "NAME: message", or just the name when the message is
// empty. Calling it marks the value as checked.
func (e *Error) Error() string {
	if e == nil {
		return Success.Name()
	}
	e.checked.Store(true)
	name := e.code.String()
	if e.msg == "" {
		return name
	}
	return name + ": " + e.msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	if e == nil || e.cause == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error carrying the same code, so
// errors.Is(err, sensorerr.New(code, "")) style sentinels work.
// Matching marks both values as checked. Prefer IsCode for plain
// code tests.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	e.checked.Store(true)
	t.checked.Store(true)
	return e.code == t.code
}

// Origin returns the file:line where the value was created.
func (e *Error) Origin() string {
	if e == nil {
		return ""
	}
	return e.origin
}

// CodeOf extracts the Code from err: Success for nil, the carried
// code for a *Error anywhere in err's chain, ErrorGeneric otherwise.
// Extraction counts as inspection.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return ErrorGeneric
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
