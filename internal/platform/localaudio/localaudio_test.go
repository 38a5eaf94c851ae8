package localaudio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-study/internal/speech"
)

type call struct {
	stdin []byte
	name  string
	args  []string
}

type recorder struct {
	mu     sync.Mutex
	calls  []call
	stdout []byte
	err    error
}

func (r *recorder) run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{stdin: stdin, name: name, args: args})
	return r.stdout, r.err
}

func installed(names ...string) lookPathFunc {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
}

func TestPlayerStartsSuspended(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := newPlayer("aplay", rec.run, installed("aplay"))
	assert.Equal(t, speech.OutputSuspended, p.State())

	err := p.Play(context.Background(), speech.Buffer{Samples: []float32{0}})
	assert.ErrorIs(t, err, speech.ErrPlayback)
	assert.Empty(t, rec.calls)
}

func TestPlayerPipesPCMToCommand(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := newPlayer("", rec.run, installed("paplay"))
	require.NoError(t, p.Resume(context.Background()))
	assert.Equal(t, speech.OutputRunning, p.State())

	samples := []float32{0, 0.5, -0.5}
	require.NoError(t, p.Play(context.Background(), speech.Buffer{Samples: samples, SampleRate: 16000}))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "paplay", rec.calls[0].name)
	assert.Contains(t, rec.calls[0].args, "--rate=16000")
	assert.Equal(t, speech.EncodePCM16(samples), rec.calls[0].stdin)
}

func TestPlayerAplayArgsUseDefaultRate(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := newPlayer("aplay", rec.run, installed("aplay"))
	require.NoError(t, p.Resume(context.Background()))
	require.NoError(t, p.Play(context.Background(), speech.Buffer{Samples: []float32{0}}))

	assert.Equal(t, []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "24000"}, rec.calls[0].args)
}

func TestPlayerResumeWithoutCommand(t *testing.T) {
	t.Parallel()

	p := newPlayer("", (&recorder{}).run, installed())
	assert.ErrorIs(t, p.Resume(context.Background()), ErrUnavailable)
	assert.Equal(t, speech.OutputSuspended, p.State())
}

func TestPlayerCommandFailureIsPlaybackError(t *testing.T) {
	t.Parallel()

	rec := &recorder{err: errors.New("exit status 1")}
	p := newPlayer("aplay", rec.run, installed("aplay"))
	require.NoError(t, p.Resume(context.Background()))

	err := p.Play(context.Background(), speech.Buffer{Samples: []float32{0}})
	assert.ErrorIs(t, err, speech.ErrPlayback)
}

func TestPlayerClosedCannotResume(t *testing.T) {
	t.Parallel()

	p := newPlayer("aplay", (&recorder{}).run, installed("aplay"))
	require.NoError(t, p.Close())
	assert.Equal(t, speech.OutputClosed, p.State())
	assert.ErrorIs(t, p.Resume(context.Background()), speech.ErrPlayback)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	out, err := DiscardFactory()(context.Background())
	require.NoError(t, err)
	d := out.(*Discard)

	assert.Equal(t, speech.OutputSuspended, d.State())
	assert.Error(t, d.Play(context.Background(), speech.Buffer{}))

	require.NoError(t, d.Resume(context.Background()))
	require.NoError(t, d.Play(context.Background(), speech.Buffer{}))
	assert.Equal(t, 1, d.Played())

	require.NoError(t, d.Close())
	assert.Error(t, d.Resume(context.Background()))
}

func TestNewVoiceDetectsCommand(t *testing.T) {
	t.Parallel()

	v, err := newVoice("", (&recorder{}).run, installed("spd-say", "espeak-ng"))
	require.NoError(t, err)
	assert.Equal(t, "espeak-ng", v.command)

	_, err = newVoice("", (&recorder{}).run, installed())
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = newVoice("festival", (&recorder{}).run, installed("say"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestVoiceArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		lang    string
		want    []string
	}{
		{"espeak-ng", "en", []string{"-v", "en", "--", "Hund"}},
		{"espeak", "", []string{"-v", "en", "--", "Hund"}},
		{"spd-say", "en", []string{"-w", "-l", "en", "--", "Hund"}},
	}

	for _, tc := range tests {
		t.Run(tc.command, func(t *testing.T) {
			t.Parallel()
			rec := &recorder{}
			v, err := newVoice(tc.command, rec.run, installed(tc.command))
			require.NoError(t, err)

			require.NoError(t, v.Speak(context.Background(), "Hund", tc.lang))
			require.Len(t, rec.calls, 1)
			assert.Equal(t, tc.command, rec.calls[0].name)
			assert.Equal(t, tc.want, rec.calls[0].args)
		})
	}
}

func TestVoiceSayPicksEnglishVoice(t *testing.T) {
	t.Parallel()

	rec := &recorder{stdout: []byte(
		"Anna                de_DE    # Hallo, ich heiße Anna.\n" +
			"Good News           en_US    # Hello! My name is Good News.\n" +
			"Samantha            en_US    # Hello, my name is Samantha.\n",
	)}
	v, err := newVoice("say", rec.run, installed("say"))
	require.NoError(t, err)

	require.NoError(t, v.Speak(context.Background(), "dog", "en"))
	require.NoError(t, v.Speak(context.Background(), "cat", "en"))

	// One voice listing, then one call per utterance.
	require.Len(t, rec.calls, 3)
	assert.Equal(t, []string{"-v", "?"}, rec.calls[0].args)
	assert.Equal(t, []string{"-v", "Good News", "--", "dog"}, rec.calls[1].args)
	assert.Equal(t, []string{"-v", "Good News", "--", "cat"}, rec.calls[2].args)
}

func TestVoiceSayWithoutMatchUsesDefault(t *testing.T) {
	t.Parallel()

	rec := &recorder{stdout: []byte("Anna  de_DE  # Hallo\n")}
	v, err := newVoice("say", rec.run, installed("say"))
	require.NoError(t, err)

	require.NoError(t, v.Speak(context.Background(), "dog", "en"))
	assert.Equal(t, []string{"--", "dog"}, rec.calls[1].args)
}

func TestVoicePropagatesCommandError(t *testing.T) {
	t.Parallel()

	rec := &recorder{err: errors.New("boom")}
	v, err := newVoice("espeak-ng", rec.run, installed("espeak-ng"))
	require.NoError(t, err)
	assert.Error(t, v.Speak(context.Background(), "dog", "en"))
}
