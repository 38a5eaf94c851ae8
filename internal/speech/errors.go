package speech

import (
	"errors"

	"github.com/phrazzld/scry-study/internal/resilience"
)

// Failure kinds of the synthesis path. None of them reaches a caller of
// Speak: each one routes the request to the local fallback voice.
var (
	// ErrConfiguration is returned when synthesis cannot be attempted at all,
	// for example because no credential or endpoint is configured.
	ErrConfiguration = errors.New("speech synthesis not configured")

	// ErrTransport is returned when the remote call fails or answers with a
	// non-success status.
	ErrTransport = errors.New("speech synthesis transport failure")

	// ErrDecode is returned when the audio payload cannot be decoded.
	ErrDecode = errors.New("speech payload could not be decoded")

	// ErrEmptyPayload is returned when the remote answers without audio.
	ErrEmptyPayload = errors.New("speech payload is empty")

	// ErrPlayback is returned when the output device cannot be acquired or
	// fails to play a buffer.
	ErrPlayback = errors.New("speech playback failed")
)

// errorKind maps a failure to the label used in logs and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrEmptyPayload):
		return "empty_payload"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrPlayback):
		return "playback"
	default:
		return "transport"
	}
}

// tripsBreaker reports whether err says something about the health of the
// remote service, as opposed to local configuration or payload content.
func tripsBreaker(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrConfiguration) &&
		!errors.Is(err, ErrDecode) &&
		!errors.Is(err, ErrEmptyPayload)
}
