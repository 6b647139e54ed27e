package sensorerr

import (
	"errors"
	"testing"
)

func TestWrapChainsContext(t *testing.T) {
	base := New(ErrorFileIO, "read failed")
	wrapped := Wrap("loading capture", base)

	e, ok := wrapped.(*Error)
	if !ok {
		t.Fatalf("Wrap returned %T, want *Error", wrapped)
	}
	if got := e.Code(); got != ErrorFileIO {
		t.Errorf("wrapped code = %v, want ErrorFileIO", got)
	}
	if got := e.Msg(); got != "loading capture\n\tread failed" {
		t.Errorf("wrapped msg = %q, want %q", got, "loading capture\n\tread failed")
	}

	// A second layer extends the trail.
	outer := Wrap("open device", e)
	oe := outer.(*Error)
	if got := oe.Msg(); got != "open device\n\tloading capture\n\tread failed" {
		t.Errorf("double-wrapped msg = %q", got)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if err := Wrap("context", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
	// A success result passed through the wrapper stays a plain
	// success: no context text, no allocation.
	var success *Error
	if err := Wrap("context", success); err != nil {
		t.Fatalf("Wrap(success) = %v, want nil", err)
	}
	if err := Wrapf(nil, "attempt %d", 3); err != nil {
		t.Fatalf("Wrapf(nil) = %v, want nil", err)
	}
}

func TestWrapEmptyMessage(t *testing.T) {
	wrapped := Wrap("seek", New(ErrorEOF, ""))
	if got := wrapped.(*Error).Msg(); got != "seek" {
		t.Errorf("msg = %q, want %q", got, "seek")
	}
}

func TestWrapForeignError(t *testing.T) {
	wrapped := Wrap("flush", errors.New("disk full"))
	e := wrapped.(*Error)
	if got := e.Code(); got != ErrorGeneric {
		t.Errorf("code = %v, want ErrorGeneric", got)
	}
	if got := e.Msg(); got != "flush\n\tdisk full" {
		t.Errorf("msg = %q", got)
	}
}

func TestWrapPreservesChainForErrorsIs(t *testing.T) {
	base := New(ErrorCorruptFile, "bad magic")
	wrapped := Wrapf(base, "packet %d", 17)
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is lost the wrapped cause")
	}
	var e *Error
	if !errors.As(wrapped, &e) {
		t.Fatal("errors.As failed on wrapped error")
	}
	if !IsCode(wrapped, ErrorCorruptFile) {
		t.Error("IsCode lost the code through Wrapf")
	}
}

func TestWrapRelievesSourceObligation(t *testing.T) {
	rec := installRecorder(t)
	func() {
		base := New(ErrorFileIO, "read failed")
		Wrap("loading capture", base).(*Error).Ignore()
	}()
	if got := settleViolations(rec); got != 0 {
		t.Fatalf("violations = %d, want 0 (source relieved, result ignored)", got)
	}
}

func TestWrapResultCarriesObligation(t *testing.T) {
	rec := installRecorder(t)
	func() {
		base := New(ErrorFileIO, "read failed")
		_ = Wrap("loading capture", base) // dropped unchecked
	}()
	if !waitViolations(rec, 1) {
		t.Fatal("dropped wrapped error never reported")
	}
	if got := settleViolations(rec); got != 1 {
		t.Fatalf("violations = %d, want exactly 1", got)
	}
	v := rec.get(0)
	if v.Kind != ViolationUnchecked {
		t.Errorf("kind = %v, want ViolationUnchecked", v.Kind)
	}
	if v.Msg != "loading capture\n\tread failed" {
		t.Errorf("violation carries msg %q, want the wrapped trail", v.Msg)
	}
}
