package strixsdk

import "github.com/strix-photonics/strix-sdk-go/sensorerr"

// ListenImageFrames registers the image-frame callback. Only one may
// be registered at a time; a second registration returns
// STRIX_ERROR_ALREADY_REGISTERED.
func (s *SDK) ListenImageFrames(cb ImageFrameCallback) *sensorerr.Error {
	if cb == nil {
		return sensorerr.New(sensorerr.ErrorInvalidArguments, "nil image frame callback")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	if s.frameCb != nil {
		return sensorerr.New(sensorerr.ErrorAlreadyRegistered, "image frame callback already registered")
	}
	s.frameCb = cb
	return nil
}

// UnlistenImageFrames removes the image-frame callback.
func (s *SDK) UnlistenImageFrames() *sensorerr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	if s.frameCb == nil {
		return sensorerr.New(sensorerr.ErrorNotFound, "no image frame callback registered")
	}
	s.frameCb = nil
	return nil
}

// ListenNetworkPackets registers the raw-packet callback. Only one may
// be registered at a time.
func (s *SDK) ListenNetworkPackets(cb NetworkPacketCallback) *sensorerr.Error {
	if cb == nil {
		return sensorerr.New(sensorerr.ErrorInvalidArguments, "nil network packet callback")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	if s.packetCb != nil {
		return sensorerr.New(sensorerr.ErrorAlreadyRegistered, "network packet callback already registered")
	}
	s.packetCb = cb
	return nil
}

// UnlistenNetworkPackets removes the raw-packet callback.
func (s *SDK) UnlistenNetworkPackets() *sensorerr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sensorerr.New(sensorerr.ErrorNotInitialized, "sdk is closed")
	}
	if s.packetCb == nil {
		return sensorerr.New(sensorerr.ErrorNotFound, "no network packet callback registered")
	}
	s.packetCb = nil
	return nil
}
