package strixsdk

import "github.com/strix-photonics/strix-sdk-go/sensorerr"

// MockNetworkReceive feeds a packet through the same decode, registry,
// frame, and callback path as live receipt, synchronously: all
// callbacks triggered by the packet run before it returns. The handle
// is forced to carry HandleFlagMock so synthetic sensors never collide
// with live ones. Decode failures are returned, not routed to the
// error callback.
func (s *SDK) MockNetworkReceive(handle Handle, timestampMicros int64, payload []byte) *sensorerr.Error {
	return s.ingest(handle|HandleFlagMock, timestampMicros, payload)
}
