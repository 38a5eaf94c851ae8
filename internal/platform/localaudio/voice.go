package localaudio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/phrazzld/scry-study/internal/speech"
)

// Voice is a speech.LocalVoice backed by a text-to-speech command.
type Voice struct {
	command string
	run     runner

	sayOnce   sync.Once
	sayVoices []sayVoice
}

var _ speech.LocalVoice = (*Voice)(nil)

type sayVoice struct {
	name   string
	locale string
}

// NewVoice returns a Voice for command. An empty command picks the first of
// espeak-ng, espeak, say and spd-say found on the path; ErrUnavailable is
// returned when there is none.
func NewVoice(command string) (*Voice, error) {
	return newVoice(command, execRun, exec.LookPath)
}

func newVoice(command string, run runner, lookPath lookPathFunc) (*Voice, error) {
	if command == "" {
		found, ok := firstAvailable(lookPath, "espeak-ng", "espeak", "say", "spd-say")
		if !ok {
			return nil, ErrUnavailable
		}
		command = found
	} else if _, err := lookPath(command); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, command, err)
	}
	return &Voice{command: command, run: run}, nil
}

// Speak implements speech.LocalVoice. It blocks until the command exits.
func (v *Voice) Speak(ctx context.Context, text, lang string) error {
	if lang == "" {
		lang = "en"
	}
	_, err := v.run(ctx, nil, v.command, v.args(ctx, text, lang)...)
	return err
}

func (v *Voice) args(ctx context.Context, text, lang string) []string {
	switch filepath.Base(v.command) {
	case "say":
		if name := v.sayVoiceFor(ctx, lang); name != "" {
			return []string{"-v", name, "--", text}
		}
		return []string{"--", text}
	case "spd-say":
		return []string{"-w", "-l", lang, "--", text}
	default: // espeak-ng and espeak take the language tag as a voice name
		return []string{"-v", lang, "--", text}
	}
}

// sayVoiceFor picks the first installed voice whose locale matches lang,
// comparing the primary subtag when lang has no region.
func (v *Voice) sayVoiceFor(ctx context.Context, lang string) string {
	v.sayOnce.Do(func() {
		out, err := v.run(ctx, nil, v.command, "-v", "?")
		if err == nil {
			v.sayVoices = parseSayVoices(out)
		}
	})

	want := strings.ToLower(strings.ReplaceAll(lang, "-", "_"))
	for _, sv := range v.sayVoices {
		loc := strings.ToLower(sv.locale)
		if loc == want || strings.HasPrefix(loc, want+"_") {
			return sv.name
		}
	}
	return ""
}

// parseSayVoices reads lines like "Samantha   en_US    # Hello, my name is Samantha."
func parseSayVoices(out []byte) []sayVoice {
	var voices []sayVoice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		locale := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, sayVoice{name: name, locale: locale})
	}
	return voices
}
