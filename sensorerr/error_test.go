package sensorerr

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"
)

// violationRecorder captures violations for inspection. Unchecked-drop
// reports arrive from the finalizer goroutine, so access is locked.
type violationRecorder struct {
	mu         sync.Mutex
	violations []Violation
}

func (r *violationRecorder) record(v Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, v)
}

func (r *violationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.violations)
}

func (r *violationRecorder) get(i int) Violation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.violations[i]
}

func installRecorder(t *testing.T) *violationRecorder {
	t.Helper()
	rec := &violationRecorder{}
	prev := SetViolationHandler(rec.record)
	t.Cleanup(func() { SetViolationHandler(prev) })
	return rec
}

// waitViolations cycles the collector until at least want violations
// have been reported or the deadline passes.
func waitViolations(rec *violationRecorder, want int) bool {
	for i := 0; i < 100; i++ {
		runtime.GC()
		if rec.count() >= want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return rec.count() >= want
}

// settleViolations runs extra collection cycles so late finalizers get
// a chance to fire before a count is asserted.
func settleViolations(rec *violationRecorder) int {
	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	return rec.count()
}

func TestNewSuccessIsNil(t *testing.T) {
	if e := New(Success, "this should vanish"); e != nil {
		t.Fatalf("New(Success) = %v, want nil", e)
	}
	var e *Error
	if e.Code() != Success {
		t.Errorf("nil Code() = %v, want Success", e.Code())
	}
	if e.Msg() != "" {
		t.Errorf("nil Msg() = %q, want empty", e.Msg())
	}
	if e.IsError() || e.IsFault() {
		t.Error("nil error classified as error or fault")
	}
	e.Ignore() // must not panic
}

func TestErrorRendering(t *testing.T) {
	e := New(ErrorNotFound, "no sensor with serial 4401")
	if got := e.Error(); got != "STRIX_ERROR_NOT_FOUND: no sensor with serial 4401" {
		t.Errorf("Error() = %q", got)
	}
	if got := e.Msg(); got != "no sensor with serial 4401" {
		t.Errorf("Msg() = %q", got)
	}
	if got := e.Name(); got != "STRIX_ERROR_NOT_FOUND" {
		t.Errorf("Name() = %q", got)
	}

	bare := New(ErrorEOF, "")
	if got := bare.Error(); got != "STRIX_ERROR_EOF" {
		t.Errorf("Error() with empty msg = %q", got)
	}

	f := Newf(FaultExtremeTemperature, "sensor %d at %d mC", 7, 94000)
	if got := f.Error(); got != "STRIX_FAULT_EXTREME_TEMPERATURE: sensor 7 at 94000 mC" {
		t.Errorf("Newf rendering = %q", got)
	}
	if !f.IsFault() {
		t.Error("fault error not classified as fault")
	}
}

func TestOriginRecorded(t *testing.T) {
	e := New(ErrorGeneric, "whence")
	defer e.Ignore()
	if e.Origin() == "" || e.Origin() == "unknown" {
		t.Errorf("Origin() = %q, want file:line", e.Origin())
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != Success {
		t.Errorf("CodeOf(nil) = %v", got)
	}
	if got := CodeOf(New(ErrorNotOpen, "no capture loaded")); got != ErrorNotOpen {
		t.Errorf("CodeOf = %v, want ErrorNotOpen", got)
	}
	wrapped := fmt.Errorf("outer: %w", New(ErrorEOF, "end of capture"))
	if got := CodeOf(wrapped); got != ErrorEOF {
		t.Errorf("CodeOf through fmt wrap = %v, want ErrorEOF", got)
	}
	if got := CodeOf(errors.New("plain")); got != ErrorGeneric {
		t.Errorf("CodeOf(foreign) = %v, want ErrorGeneric", got)
	}
	if !IsCode(nil, Success) {
		t.Error("IsCode(nil, Success) = false")
	}
	if !IsCode(New(ErrorFileIO, "x"), ErrorFileIO) {
		t.Error("IsCode mismatch for ErrorFileIO")
	}
}

func TestInvalidCodeFiresViolation(t *testing.T) {
	rec := installRecorder(t)
	e := New(Code(-500), "bogus")
	if e == nil {
		t.Fatal("invalid-code construction returned nil")
	}
	if e.Code().Valid() {
		t.Error("invalid code reported as valid")
	}
	if got := e.Name(); got != "" {
		t.Errorf("Name() for invalid code = %q, want empty", got)
	}
	if rec.count() != 1 {
		t.Fatalf("violations = %d, want 1", rec.count())
	}
	v := rec.get(0)
	if v.Kind != ViolationInvalidCode {
		t.Errorf("violation kind = %v, want ViolationInvalidCode", v.Kind)
	}
	if v.Code != Code(-500) {
		t.Errorf("violation code = %d, want -500", v.Code)
	}
}

func TestUncheckedErrorFiresExactlyOnce(t *testing.T) {
	rec := installRecorder(t)
	func() {
		_ = New(ErrorCommunication, "decode failed")
	}()
	if !waitViolations(rec, 1) {
		t.Fatal("unchecked error never reported")
	}
	if got := settleViolations(rec); got != 1 {
		t.Fatalf("violations = %d, want exactly 1", got)
	}
	v := rec.get(0)
	if v.Kind != ViolationUnchecked {
		t.Errorf("violation kind = %v, want ViolationUnchecked", v.Kind)
	}
	if v.Code != ErrorCommunication {
		t.Errorf("violation code = %v, want ErrorCommunication", v.Code)
	}
	if v.Msg != "decode failed" {
		t.Errorf("violation msg = %q", v.Msg)
	}
}

func TestIgnoreSuppressesViolation(t *testing.T) {
	rec := installRecorder(t)
	func() {
		New(ErrorCorruptFile, "short header").Ignore()
	}()
	if got := settleViolations(rec); got != 0 {
		t.Fatalf("violations after Ignore = %d, want 0", got)
	}
}

func TestInspectionSuppressesViolation(t *testing.T) {
	rec := installRecorder(t)
	func() {
		e := New(ErrorNotFound, "gone")
		if e.Code() != ErrorNotFound {
			t.Error("unexpected code")
		}
	}()
	if got := settleViolations(rec); got != 0 {
		t.Fatalf("violations after inspection = %d, want 0", got)
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{Kind: ViolationUnchecked, Code: ErrorFileIO, Msg: "read", Origin: "replay.go:40"}
	want := "unchecked error: STRIX_ERROR_FILE_IO: read (created at replay.go:40)"
	if got := v.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
