package sensorerr

import (
	"errors"
	"fmt"
)

// Wrap prefixes a context label onto err's message, separated by
// "\n\t", building a readable trail as an error climbs out of nested
// calls. Wrapping nil returns nil with no context attached.
//
// The source error is marked checked; the returned value carries a
// fresh must-check obligation. The source stays reachable through
// Unwrap, so errors.Is and errors.As see the whole chain. A non-nil
// err with no *Error in its chain is wrapped under ErrorGeneric.
func Wrap(context string, err error) error {
	return wrapErr(context, err, callerOrigin(2))
}

// Wrapf is Wrap with fmt.Sprintf label formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return wrapErr(fmt.Sprintf(format, args...), err, callerOrigin(2))
}

func wrapErr(context string, err error, origin string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		if e == nil {
			return nil
		}
		e.checked.Store(true)
		w := newError(e.code, chain(context, e.msg), origin)
		w.cause = e
		return w
	}
	code := ErrorGeneric
	var e *Error
	if errors.As(err, &e) && e != nil {
		code = e.Code()
	}
	w := newError(code, chain(context, err.Error()), origin)
	w.cause = err
	return w
}

func chain(context, msg string) string {
	if msg == "" {
		return context
	}
	return context + "\n\t" + msg
}
