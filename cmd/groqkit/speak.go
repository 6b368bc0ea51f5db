package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"groqkit/internal/speech"
	"groqkit/pkg/groq"
)

type synthesizer interface {
	TextToSpeech(ctx context.Context, req groq.TextToSpeechRequest) (*groq.TextToSpeechResponse, error)
}

type speakOptions struct {
	out   string
	voice string
	model string
	speed float64
	local bool
}

func newSpeakCmd(e *env) *cobra.Command {
	opts := speakOptions{}

	cmd := &cobra.Command{
		Use:   "speak <text>...",
		Short: "Synthesize speech to a WAV file, or speak it with the host's voice using --local",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			if opts.local {
				voice := opts.voice
				if voice == "" {
					voice = e.cfg.Defaults.LocalVoice
				}
				return speech.NewLocal(voice, e.logger).Speak(cmd.Context(), text)
			}

			client, err := e.client()
			if err != nil {
				return err
			}
			if opts.model == "" {
				opts.model = e.cfg.Defaults.SpeechModel
			}
			if opts.voice == "" {
				opts.voice = e.cfg.Defaults.SpeechVoice
			}
			return synthesizeToFile(cmd.Context(), client, opts, text, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "speech.wav", "Output file, or - for stdout")
	cmd.Flags().StringVar(&opts.voice, "voice", "", "Voice (default from config)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model (default from config)")
	cmd.Flags().Float64Var(&opts.speed, "speed", groq.DefaultSpeed, "Speaking rate")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Speak through the operating system instead of the API")
	return cmd
}

// synthesizeToFile writes the audio to opts.out, or to stdout when it is "-".
func synthesizeToFile(ctx context.Context, client synthesizer, opts speakOptions, text string, stdout io.Writer) error {
	req := groq.NewTextToSpeechRequest(opts.model, text, opts.voice).WithSpeed(opts.speed)
	resp, err := client.TextToSpeech(ctx, req)
	if err != nil {
		return err
	}

	if opts.out == "-" {
		_, err := stdout.Write(resp.AudioData)
		return err
	}
	if err := os.WriteFile(opts.out, resp.AudioData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(resp.AudioData), opts.out)
	return nil
}
