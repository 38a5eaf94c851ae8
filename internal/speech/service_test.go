package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/scry-study/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	calls atomic.Int32
	audio Audio
	err   error
	gate  chan struct{}
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) (Audio, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.audio, f.err
}

type fakeOutput struct {
	mu      sync.Mutex
	state   OutputState
	resumes int
	played  []Buffer
	playErr error
	closed  bool
}

func (o *fakeOutput) State() OutputState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *fakeOutput) Resume(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resumes++
	o.state = OutputRunning
	return nil
}

func (o *fakeOutput) Play(_ context.Context, buf Buffer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return o.playErr
	}
	o.played = append(o.played, buf)
	return nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.state = OutputClosed
	return nil
}

func (o *fakeOutput) plays() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.played)
}

type fakeVoice struct {
	mu    sync.Mutex
	calls []string
	langs []string
	err   error
}

func (v *fakeVoice) Speak(_ context.Context, text, lang string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, text)
	v.langs = append(v.langs, lang)
	return v.err
}

func (v *fakeVoice) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.calls)
}

func helloAudio() Audio {
	return Audio{PCM: []byte{0x00, 0x40, 0x00, 0xc0, 0x10, 0x00}, SampleRate: SampleRate}
}

type harness struct {
	svc     *Service
	synth   *fakeSynth
	output  *fakeOutput
	voice   *fakeVoice
	outputs atomic.Int32
}

func newHarness(t *testing.T, cfg Config, extra ...Option) *harness {
	t.Helper()
	h := &harness{
		synth:  &fakeSynth{audio: helloAudio()},
		output: &fakeOutput{state: OutputSuspended},
		voice:  &fakeVoice{},
	}
	opts := []Option{
		WithSynthesizer(h.synth),
		WithOutput(func(context.Context) (Output, error) {
			h.outputs.Add(1)
			return h.output, nil
		}),
		WithLocalVoice(h.voice),
	}
	h.svc = New(cfg, append(opts, extra...)...)
	t.Cleanup(func() { _ = h.svc.Dispose() })
	return h
}

func TestSpeakTwiceHitsRemoteOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	ctx := context.Background()

	assert.Equal(t, SourceRemote, h.svc.SpeakSync(ctx, "Hello"))
	assert.Equal(t, SourceCache, h.svc.SpeakSync(ctx, "Hello"))

	assert.Equal(t, int32(1), h.synth.calls.Load())
	assert.Equal(t, 2, h.output.plays())
	assert.Zero(t, h.voice.count())
}

func TestCacheKeyIsExactText(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	ctx := context.Background()

	h.svc.SpeakSync(ctx, "Hello")
	assert.Equal(t, SourceRemote, h.svc.SpeakSync(ctx, "hello"))
	assert.Equal(t, SourceRemote, h.svc.SpeakSync(ctx, "Hello "))
	assert.Equal(t, int32(3), h.synth.calls.Load())
	assert.True(t, h.svc.Cached("Hello"))
	assert.False(t, h.svc.Cached("HELLO"))
}

func TestDecodedBufferIsPlayed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.svc.SpeakSync(context.Background(), "Hello")

	require.Equal(t, 1, h.output.plays())
	buf := h.output.played[0]
	assert.Equal(t, SampleRate, buf.SampleRate)
	assert.Equal(t, []float32{0.5, -0.5, 16.0 / 32768}, buf.Samples)
}

func TestOutputAcquiredLazilyAndResumed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	assert.Zero(t, h.outputs.Load(), "no output before the first request")

	h.svc.SpeakSync(context.Background(), "one")
	h.svc.SpeakSync(context.Background(), "two")

	assert.Equal(t, int32(1), h.outputs.Load())
	assert.Equal(t, 1, h.output.resumes)
}

func TestEmptyPayloadFallsBackOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.synth.audio = Audio{}

	src := h.svc.SpeakSync(context.Background(), "Hello")
	assert.Equal(t, SourceFallback, src)
	assert.Equal(t, 1, h.voice.count())
	assert.Equal(t, []string{"en"}, h.voice.langs)
	assert.Zero(t, h.output.plays())
	assert.False(t, h.svc.Cached("Hello"))
}

func TestFailuresDegradeToFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"configuration", fmt.Errorf("%w: missing key", ErrConfiguration)},
		{"transport", fmt.Errorf("%w: 503", ErrTransport)},
		{"decode", fmt.Errorf("%w: bad base64", ErrDecode)},
		{"unclassified", errors.New("connection reset")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, Config{FallbackLanguage: "en-US"})
			h.synth.err = tc.err

			assert.Equal(t, SourceFallback, h.svc.SpeakSync(context.Background(), "Hola"))
			assert.Equal(t, []string{"Hola"}, h.voice.calls)
			assert.Equal(t, []string{"en-US"}, h.voice.langs)
		})
	}
}

func TestNoSynthesizerIsConfigurationFallback(t *testing.T) {
	t.Parallel()

	voice := &fakeVoice{}
	out := &fakeOutput{state: OutputRunning}
	svc := New(Config{},
		WithOutput(func(context.Context) (Output, error) { return out, nil }),
		WithLocalVoice(voice),
	)
	defer svc.Dispose()

	assert.Equal(t, SourceFallback, svc.SpeakSync(context.Background(), "Hello"))
	assert.Equal(t, 1, voice.count())
}

func TestNoFallbackIsSilent(t *testing.T) {
	t.Parallel()

	svc := New(Config{}, WithSynthesizer(&fakeSynth{err: ErrTransport}),
		WithOutput(func(context.Context) (Output, error) { return &fakeOutput{state: OutputRunning}, nil }))
	defer svc.Dispose()

	assert.Equal(t, SourceSilent, svc.SpeakSync(context.Background(), "Hello"))
}

func TestPlaybackFailureFallsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.output.playErr = errors.New("device busy")

	assert.Equal(t, SourceFallback, h.svc.SpeakSync(context.Background(), "Hello"))
	assert.True(t, h.svc.Cached("Hello"), "synthesis succeeded so the buffer is kept")
}

func TestOutputAcquisitionFailureFallsBack(t *testing.T) {
	t.Parallel()

	voice := &fakeVoice{}
	synth := &fakeSynth{audio: helloAudio()}
	svc := New(Config{},
		WithSynthesizer(synth),
		WithOutput(func(context.Context) (Output, error) { return nil, errors.New("no device") }),
		WithLocalVoice(voice),
	)
	defer svc.Dispose()

	assert.Equal(t, SourceFallback, svc.SpeakSync(context.Background(), "Hello"))
	assert.Zero(t, synth.calls.Load())
}

func TestBlankTextIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	assert.Equal(t, SourceSilent, h.svc.SpeakSync(context.Background(), "  "))
	assert.Zero(t, h.synth.calls.Load())
	assert.Zero(t, h.voice.count())
}

func TestStaleRequestIsCachedButNotPlayed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.synth.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Source, 1)
	go func() { done <- h.svc.SpeakSync(ctx, "Hello") }()

	require.Eventually(t, func() bool { return h.synth.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(h.synth.gate)

	assert.Equal(t, SourceSilent, <-done)
	assert.Zero(t, h.output.plays())
	assert.Zero(t, h.voice.count())
	assert.True(t, h.svc.Cached("Hello"))
}

func TestCoalescedRequestsShareOneCall(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Coalesce: true})
	h.synth.gate = make(chan struct{})

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan Source, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- h.svc.SpeakSync(context.Background(), "Hello")
		}()
	}

	require.Eventually(t, func() bool { return h.synth.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(h.synth.gate)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), h.synth.calls.Load())
	for src := range results {
		assert.Contains(t, []Source{SourceRemote, SourceCache}, src)
	}
	assert.Equal(t, callers, h.output.plays())
}

func TestOpenBreakerSkipsRemote(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{Name: "tts", MaxFailures: 2, ResetTimeout: time.Hour})
	h := newHarness(t, Config{}, WithBreaker(cb))
	h.synth.err = fmt.Errorf("%w: 500", ErrTransport)

	for i := 0; i < 2; i++ {
		h.svc.SpeakSync(context.Background(), fmt.Sprintf("word %d", i))
	}
	require.Equal(t, resilience.StateOpen, cb.State())

	assert.Equal(t, SourceFallback, h.svc.SpeakSync(context.Background(), "word 3"))
	assert.Equal(t, int32(2), h.synth.calls.Load())
	assert.Equal(t, 3, h.voice.count())
}

func TestEmptyPayloadDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	cb := resilience.New(resilience.Config{Name: "tts", MaxFailures: 1, ResetTimeout: time.Hour})
	h := newHarness(t, Config{}, WithBreaker(cb))
	h.synth.err = ErrEmptyPayload

	h.svc.SpeakSync(context.Background(), "a")
	h.svc.SpeakSync(context.Background(), "b")
	assert.Equal(t, resilience.StateClosed, cb.State())
	assert.Equal(t, int32(2), h.synth.calls.Load())
}

func TestSpeakIsAsyncAndDisposeWaits(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.synth.gate = make(chan struct{})

	h.svc.Speak(context.Background(), "Hello")
	require.Eventually(t, func() bool { return h.synth.calls.Load() == 1 }, time.Second, time.Millisecond)

	disposed := make(chan struct{})
	go func() {
		_ = h.svc.Dispose()
		close(disposed)
	}()

	select {
	case <-disposed:
		t.Fatal("Dispose returned while a request was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(h.synth.gate)
	<-disposed
	assert.Equal(t, 1, h.output.plays())
	assert.True(t, h.output.closed)

	assert.Equal(t, SourceSilent, h.svc.SpeakSync(context.Background(), "Hello"), "disposed service is silent")
}
