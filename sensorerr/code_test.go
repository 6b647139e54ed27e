package sensorerr

import "testing"

func TestCodeNames(t *testing.T) {
	tests := []struct {
		code    Code
		name    string
		isError bool
		isFault bool
	}{
		{Success, "STRIX_SUCCESS", false, false},
		{ErrorGeneric, "STRIX_ERROR_GENERIC", true, false},
		{ErrorInvalidArguments, "STRIX_ERROR_INVALID_ARGUMENTS", true, false},
		{ErrorNotFound, "STRIX_ERROR_NOT_FOUND", true, false},
		{ErrorAlreadyRegistered, "STRIX_ERROR_ALREADY_REGISTERED", true, false},
		{ErrorVersionMismatch, "STRIX_ERROR_VERSION_MISMATCH", true, false},
		{ErrorNotInitialized, "STRIX_ERROR_NOT_INITIALIZED", true, false},
		{ErrorCommunication, "STRIX_ERROR_COMMUNICATION", true, false},
		{ErrorInvalidFileType, "STRIX_ERROR_INVALID_FILE_TYPE", true, false},
		{ErrorFileIO, "STRIX_ERROR_FILE_IO", true, false},
		{ErrorCorruptFile, "STRIX_ERROR_CORRUPT_FILE", true, false},
		{ErrorNotOpen, "STRIX_ERROR_NOT_OPEN", true, false},
		{ErrorEOF, "STRIX_ERROR_EOF", true, false},
		{FaultInternal, "STRIX_FAULT_INTERNAL", false, true},
		{FaultExtremeTemperature, "STRIX_FAULT_EXTREME_TEMPERATURE", false, true},
		{FaultAbnormalFOV, "STRIX_FAULT_ABNORMAL_FOV", false, true},
		{FaultMotorMalfunction, "STRIX_FAULT_MOTOR_MALFUNCTION", false, true},
		{FaultDetectorMalfunction, "STRIX_FAULT_DETECTOR_MALFUNCTION", false, true},
	}
	for _, tt := range tests {
		if got := tt.code.Name(); got != tt.name {
			t.Errorf("Name(%d) = %q, want %q", tt.code, got, tt.name)
		}
		if got := tt.code.IsError(); got != tt.isError {
			t.Errorf("IsError(%s) = %v, want %v", tt.name, got, tt.isError)
		}
		if got := tt.code.IsFault(); got != tt.isFault {
			t.Errorf("IsFault(%s) = %v, want %v", tt.name, got, tt.isFault)
		}
		if !tt.code.Valid() {
			t.Errorf("Valid(%s) = false, want true", tt.name)
		}
	}
}

func TestUnknownCode(t *testing.T) {
	for _, c := range []Code{1, -14, -99, -500, -999, -1009, -2000} {
		if got := c.Name(); got != "" {
			t.Errorf("Name(%d) = %q, want empty", c, got)
		}
		if c.IsError() || c.IsFault() {
			t.Errorf("code %d classified as error=%v fault=%v, want neither", c, c.IsError(), c.IsFault())
		}
		if c.Valid() {
			t.Errorf("Valid(%d) = true, want false", c)
		}
	}
}

func TestErrorAndFaultRangesDisjoint(t *testing.T) {
	for c := range errorNames {
		if _, ok := faultNames[c]; ok {
			t.Errorf("code %d present in both error and fault tables", c)
		}
		if c >= 0 || c < -999 {
			t.Errorf("error code %d outside expected range", c)
		}
	}
	for c := range faultNames {
		if c > -1000 {
			t.Errorf("fault code %d outside expected range", c)
		}
	}
}

func TestCodeString(t *testing.T) {
	if got := ErrorNotFound.String(); got != "STRIX_ERROR_NOT_FOUND" {
		t.Errorf("String() = %q", got)
	}
	if got := Code(-77).String(); got != "STRIX_CODE(-77)" {
		t.Errorf("String() for unknown code = %q", got)
	}
}
