//go:build !strixstrict

package sensorerr

// strictViolations is false in normal builds: violations are logged
// and execution continues.
const strictViolations = false
