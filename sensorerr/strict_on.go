//go:build strixstrict

package sensorerr

// strictViolations is true under the strixstrict tag: any contract
// breach panics instead of degrading to a log line.
const strictViolations = true
