package sensorerr

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Logf is the destination for violation diagnostics. Replace it with
// SetLogger; a nil logger silences output (the violation handler still
// runs).
var Logf = log.Printf

// SetLogger redirects the package's diagnostic output. Passing nil
// installs a no-op logger.
func SetLogger(logf func(format string, args ...interface{})) {
	if logf == nil {
		Logf = func(format string, args ...interface{}) {}
		return
	}
	Logf = logf
}

// ViolationKind distinguishes the two contract breaches the package
// detects.
type ViolationKind int

const (
	// ViolationUnchecked: a non-success Error became unreachable
	// without being inspected or ignored.
	ViolationUnchecked ViolationKind = iota
	// ViolationInvalidCode: an Error was constructed from a code
	// outside the recognized tables.
	ViolationInvalidCode
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationUnchecked:
		return "unchecked error"
	case ViolationInvalidCode:
		return "invalid error code"
	default:
		return fmt.Sprintf("violation(%d)", int(k))
	}
}

// Violation describes a single contract breach.
type Violation struct {
	Kind   ViolationKind
	Code   Code
	Msg    string
	Origin string
}

func (v Violation) String() string {
	s := fmt.Sprintf("%s: %s", v.Kind, v.Code)
	if v.Msg != "" {
		s += ": " + v.Msg
	}
	if v.Origin != "" {
		s += " (created at " + v.Origin + ")"
	}
	return s
}

type violationFunc func(Violation)

var violationHandler atomic.Value // violationFunc

func init() {
	violationHandler.Store(violationFunc(defaultViolationHandler))
}

// SetViolationHandler replaces the process-wide handler invoked on
// contract breaches and returns the previous one. Passing nil
// restores the default handler, which logs the violation and, when
// built with the strixstrict tag, panics. Unchecked-drop violations
// are reported from the runtime's finalizer goroutine.
func SetViolationHandler(h func(Violation)) func(Violation) {
	prev := violationHandler.Load().(violationFunc)
	if h == nil {
		h = defaultViolationHandler
	}
	violationHandler.Store(violationFunc(h))
	return prev
}

func reportViolation(v Violation) {
	violationHandler.Load().(violationFunc)(v)
}

func defaultViolationHandler(v Violation) {
	Logf("sensorerr: %s", v)
	if strictViolations {
		panic("sensorerr: " + v.String())
	}
}
