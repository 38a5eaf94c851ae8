// Package localaudio plays audio and speaks text with the host's command
// line tools: aplay or paplay for PCM output, and espeak-ng, say or spd-say
// for the fallback voice.
package localaudio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrUnavailable is returned when no suitable command is installed.
var ErrUnavailable = errors.New("no local audio command available")

// runner executes name with args, feeding stdin, and returns stdout.
type runner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// lookPathFunc resolves a command name to an executable path.
type lookPathFunc func(name string) (string, error)

func execRun(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// firstAvailable returns the first candidate that resolves on the path.
func firstAvailable(lookPath lookPathFunc, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if _, err := lookPath(c); err == nil {
			return c, true
		}
	}
	return "", false
}
