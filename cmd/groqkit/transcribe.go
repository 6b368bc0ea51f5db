package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"groqkit/pkg/groq"
)

type asyncTranscriber interface {
	SpeechToText(ctx context.Context, req groq.SpeechToTextRequest) *groq.Future[*groq.SpeechToTextResponse]
}

type transcribeOptions struct {
	translate   bool
	language    string
	prompt      string
	model       string
	temperature float64
}

func (o transcribeOptions) request(audio []byte) groq.SpeechToTextRequest {
	req := groq.NewSpeechToTextRequest(audio).
		WithEnglishText(o.translate).
		WithLanguage(o.language).
		WithPrompt(o.prompt).
		WithModel(o.model)
	if o.temperature >= 0 {
		req = req.WithTemperature(o.temperature)
	}
	return req
}

func newTranscribeCmd(e *env) *cobra.Command {
	opts := transcribeOptions{}

	cmd := &cobra.Command{
		Use:   "transcribe <file>...",
		Short: "Transcribe audio files, or translate them into English with --translate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client()
			if err != nil {
				return err
			}
			if opts.model == "" {
				opts.model = e.cfg.Defaults.TranscriptionModel
			}
			return transcribeFiles(cmd.Context(), client.Async(), opts, args, os.ReadFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.translate, "translate", false, "Translate the speech into English text")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Spoken language as ISO-639-1, e.g. en")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Text to guide the model's style or vocabulary")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model (default from config)")
	cmd.Flags().Float64VarP(&opts.temperature, "temperature", "t", -1, "Sampling temperature (API default when unset)")
	return cmd
}

// transcribeFiles submits every file at once and prints the results in
// argument order. A failing file does not stop the others.
func transcribeFiles(ctx context.Context, client asyncTranscriber, opts transcribeOptions, paths []string,
	readFile func(string) ([]byte, error), out io.Writer) error {
	futures := make([]*groq.Future[*groq.SpeechToTextResponse], len(paths))
	var errs []error

	for i, path := range paths {
		audio, err := readFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		futures[i] = client.SpeechToText(ctx, opts.request(audio))
	}

	for i, future := range futures {
		if future == nil {
			continue
		}
		resp, err := future.Await(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", paths[i], err))
			continue
		}
		if len(paths) == 1 {
			fmt.Fprintln(out, resp.Text)
		} else {
			fmt.Fprintf(out, "%s: %s\n", paths[i], resp.Text)
		}
	}
	return errors.Join(errs...)
}
