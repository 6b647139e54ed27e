// Package sensorerr implements the error model shared by every Strix
// SDK surface: a stable code space split into recoverable errors and
// device faults, an error value that must be inspected before it is
// discarded, and context chaining for readable failure trails.
//
// Success is represented by a nil *Error. Any non-nil *Error that
// becomes unreachable without one of its accessors having been called
// is reported through the violation handler (see SetViolationHandler);
// this turns a forgotten error check into a detectable defect instead
// of a silent one.
package sensorerr

import "fmt"

// Code identifies the outcome of an SDK operation. Zero is success.
// Negative values fall into two disjoint ranges: recoverable errors
// and device faults reported by sensor hardware.
type Code int32

const Success Code = 0

// Recoverable errors.
const (
	ErrorGeneric            Code = -1
	ErrorInvalidArguments   Code = -2
	ErrorNotFound           Code = -3
	ErrorAlreadyRegistered  Code = -4
	ErrorVersionMismatch    Code = -5
	ErrorAlreadyInitialized Code = -6
	ErrorNotInitialized     Code = -7
	ErrorCommunication      Code = -8
	ErrorInvalidFileType    Code = -9
	ErrorFileIO             Code = -10
	ErrorCorruptFile        Code = -11
	ErrorNotOpen            Code = -12
	ErrorEOF                Code = -13
)

// Device faults. These originate in sensor telemetry, not in the SDK.
const (
	FaultInternal            Code = -1000
	FaultExtremeTemperature  Code = -1001
	FaultExtremeHumidity     Code = -1002
	FaultExtremeAcceleration Code = -1003
	FaultAbnormalFOV         Code = -1004
	FaultAbnormalFrameRate   Code = -1005
	FaultMotorMalfunction    Code = -1006
	FaultLaserMalfunction    Code = -1007
	FaultDetectorMalfunction Code = -1008
)

var errorNames = map[Code]string{
	ErrorGeneric:            "STRIX_ERROR_GENERIC",
	ErrorInvalidArguments:   "STRIX_ERROR_INVALID_ARGUMENTS",
	ErrorNotFound:           "STRIX_ERROR_NOT_FOUND",
	ErrorAlreadyRegistered:  "STRIX_ERROR_ALREADY_REGISTERED",
	ErrorVersionMismatch:    "STRIX_ERROR_VERSION_MISMATCH",
	ErrorAlreadyInitialized: "STRIX_ERROR_ALREADY_INITIALIZED",
	ErrorNotInitialized:     "STRIX_ERROR_NOT_INITIALIZED",
	ErrorCommunication:      "STRIX_ERROR_COMMUNICATION",
	ErrorInvalidFileType:    "STRIX_ERROR_INVALID_FILE_TYPE",
	ErrorFileIO:             "STRIX_ERROR_FILE_IO",
	ErrorCorruptFile:        "STRIX_ERROR_CORRUPT_FILE",
	ErrorNotOpen:            "STRIX_ERROR_NOT_OPEN",
	ErrorEOF:                "STRIX_ERROR_EOF",
}

var faultNames = map[Code]string{
	FaultInternal:            "STRIX_FAULT_INTERNAL",
	FaultExtremeTemperature:  "STRIX_FAULT_EXTREME_TEMPERATURE",
	FaultExtremeHumidity:     "STRIX_FAULT_EXTREME_HUMIDITY",
	FaultExtremeAcceleration: "STRIX_FAULT_EXTREME_ACCELERATION",
	FaultAbnormalFOV:         "STRIX_FAULT_ABNORMAL_FOV",
	FaultAbnormalFrameRate:   "STRIX_FAULT_ABNORMAL_FRAME_RATE",
	FaultMotorMalfunction:    "STRIX_FAULT_MOTOR_MALFUNCTION",
	FaultLaserMalfunction:    "STRIX_FAULT_LASER_MALFUNCTION",
	FaultDetectorMalfunction: "STRIX_FAULT_DETECTOR_MALFUNCTION",
}

// Name returns the symbolic name for c, or the empty string if c is
// neither Success nor a recognized error or fault code.
func (c Code) Name() string {
	if c == Success {
		return "STRIX_SUCCESS"
	}
	if name, ok := errorNames[c]; ok {
		return name
	}
	if name, ok := faultNames[c]; ok {
		return name
	}
	return ""
}

// IsError reports whether c is a recognized recoverable error code.
func (c Code) IsError() bool {
	_, ok := errorNames[c]
	return ok
}

// IsFault reports whether c is a recognized device fault code.
func (c Code) IsFault() bool {
	_, ok := faultNames[c]
	return ok
}

// Valid reports whether c is Success or a recognized code.
func (c Code) Valid() bool {
	return c == Success || c.IsError() || c.IsFault()
}

func (c Code) String() string {
	if name := c.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("STRIX_CODE(%d)", int32(c))
}
