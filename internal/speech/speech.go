// Package speech speaks text aloud with the operating system's own voice:
// say on macOS, System.Speech through PowerShell on Windows and espeak on
// Linux. It needs no network and is independent of the Groq speech API.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupported is returned on platforms without a known speech command.
var ErrUnsupported = errors.New("text-to-speech is not supported on this platform")

// DefaultVoice is the macOS voice used when none is configured.
const DefaultVoice = "ava"

// Speaker speaks text aloud.
type Speaker interface {
	// Speak starts speaking and returns without waiting for playback to finish.
	Speak(ctx context.Context, text string) error
}

// Command returns the program and arguments that speak text on goos. The
// text itself is never an argument; it is written to the process's stdin so
// that text starting with a dash cannot be read as an option.
// voice applies on macOS only.
func Command(goos, voice string) (string, []string, error) {
	switch goos {
	case "darwin":
		if voice == "" {
			voice = DefaultVoice
		}
		return "say", []string{"-v", voice, "-f", "-"}, nil
	case "windows":
		script := "Add-Type -AssemblyName System.Speech; " +
			"$synthesizer = New-Object -TypeName System.Speech.Synthesis.SpeechSynthesizer; " +
			"$synthesizer.Speak([Console]::In.ReadToEnd());"
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}, nil
	case "linux":
		return "espeak", []string{"--stdin"}, nil
	default:
		return "", nil, ErrUnsupported
	}
}

// Local speaks through the host's speech command.
type Local struct {
	goos   string
	voice  string
	logger *slog.Logger
	start  func(cmd *exec.Cmd) error
}

// NewLocal returns a Speaker for the running platform.
func NewLocal(voice string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		goos:   runtime.GOOS,
		voice:  voice,
		logger: logger,
		start:  startDetached,
	}
}

// Speak starts the speech process and returns. The process outlives ctx; it
// is reaped in the background and a failed exit is logged.
func (l *Local) Speak(ctx context.Context, text string) error {
	name, args, err := Command(l.goos, l.voice)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)
	cmd.Stdin = strings.NewReader(text)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	l.logger.DebugContext(ctx, "local speech started", "command", name, "chars", len(text))
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Warn("local speech exited with error", "command", cmd.Path, "error", err)
		}
	}()
	return nil
}
