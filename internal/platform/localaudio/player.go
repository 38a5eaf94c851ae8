package localaudio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/phrazzld/scry-study/internal/speech"
)

// Player is a speech.Output that pipes raw PCM16 into a player command. It
// starts suspended; Resume checks that the command is installed.
type Player struct {
	command  string
	run      runner
	lookPath lookPathFunc

	mu    sync.Mutex
	state speech.OutputState
}

var _ speech.Output = (*Player)(nil)

// NewPlayer returns a Player for command. An empty command picks the first
// of aplay and paplay found on the path.
func NewPlayer(command string) *Player {
	return newPlayer(command, execRun, exec.LookPath)
}

func newPlayer(command string, run runner, lookPath lookPathFunc) *Player {
	if command == "" {
		command, _ = firstAvailable(lookPath, "aplay", "paplay")
	}
	return &Player{
		command:  command,
		run:      run,
		lookPath: lookPath,
		state:    speech.OutputSuspended,
	}
}

// PlayerFactory returns an OutputFactory that builds a Player for command.
func PlayerFactory(command string) speech.OutputFactory {
	return func(context.Context) (speech.Output, error) {
		return NewPlayer(command), nil
	}
}

// State implements speech.Output.
func (p *Player) State() speech.OutputState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Resume implements speech.Output.
func (p *Player) Resume(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == speech.OutputClosed {
		return fmt.Errorf("%w: player closed", speech.ErrPlayback)
	}
	if p.command == "" {
		return ErrUnavailable
	}
	if _, err := p.lookPath(p.command); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, p.command, err)
	}
	p.state = speech.OutputRunning
	return nil
}

// Play implements speech.Output. It blocks until the command exits.
func (p *Player) Play(ctx context.Context, buf speech.Buffer) error {
	if p.State() != speech.OutputRunning {
		return fmt.Errorf("%w: player is not running", speech.ErrPlayback)
	}
	rate := buf.SampleRate
	if rate <= 0 {
		rate = speech.SampleRate
	}
	if _, err := p.run(ctx, speech.EncodePCM16(buf.Samples), p.command, playerArgs(p.command, rate)...); err != nil {
		return fmt.Errorf("%w: %v", speech.ErrPlayback, err)
	}
	return nil
}

// Close implements speech.Output.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = speech.OutputClosed
	return nil
}

func playerArgs(command string, rate int) []string {
	r := strconv.Itoa(rate)
	switch filepath.Base(command) {
	case "paplay":
		return []string{"--raw", "--format=s16le", "--channels=1", "--rate=" + r}
	default:
		return []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", r}
	}
}

// Discard is a speech.Output that accepts every buffer without playing it,
// for hosts without a sound device. It still observes the suspended state.
type Discard struct {
	mu     sync.Mutex
	state  speech.OutputState
	played int
}

var _ speech.Output = (*Discard)(nil)

// DiscardFactory returns an OutputFactory that builds a Discard output.
func DiscardFactory() speech.OutputFactory {
	return func(context.Context) (speech.Output, error) {
		return &Discard{state: speech.OutputSuspended}, nil
	}
}

// State implements speech.Output.
func (d *Discard) State() speech.OutputState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Resume implements speech.Output.
func (d *Discard) Resume(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == speech.OutputClosed {
		return fmt.Errorf("%w: output closed", speech.ErrPlayback)
	}
	d.state = speech.OutputRunning
	return nil
}

// Play implements speech.Output.
func (d *Discard) Play(context.Context, speech.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != speech.OutputRunning {
		return fmt.Errorf("%w: output is not running", speech.ErrPlayback)
	}
	d.played++
	return nil
}

// Close implements speech.Output.
func (d *Discard) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = speech.OutputClosed
	return nil
}

// Played returns how many buffers were accepted.
func (d *Discard) Played() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.played
}
