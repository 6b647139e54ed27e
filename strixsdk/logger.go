package strixsdk

import "log"

// Logf is the destination for SDK diagnostics (listener errors, replay
// progress, dropped packets). Replace it with SetLogger.
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
