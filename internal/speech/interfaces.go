package speech

import "context"

// Audio is a raw synthesis result: PCM16 little-endian mono bytes.
type Audio struct {
	PCM        []byte
	SampleRate int
}

// Synthesizer turns text into speech on a remote service.
type Synthesizer interface {
	// Synthesize returns the audio for text in the given voice. Failures
	// should wrap ErrConfiguration, ErrTransport, ErrDecode or
	// ErrEmptyPayload.
	Synthesize(ctx context.Context, text, voice string) (Audio, error)
}

// OutputState is the lifecycle state of a playback Output.
type OutputState string

// Possible output states
const (
	OutputRunning   OutputState = "running"
	OutputSuspended OutputState = "suspended"
	OutputClosed    OutputState = "closed"
)

// Output is a playback device. A suspended output must be resumed before it
// plays.
type Output interface {
	State() OutputState
	Resume(ctx context.Context) error
	Play(ctx context.Context, buf Buffer) error
	Close() error
}

// OutputFactory acquires an Output. It is called lazily on the first
// request, which always originates from a learner action.
type OutputFactory func(ctx context.Context) (Output, error)

// LocalVoice is the platform speech fallback.
type LocalVoice interface {
	// Speak says text aloud with a voice matching the language tag.
	Speak(ctx context.Context, text, lang string) error
}
