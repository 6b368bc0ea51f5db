package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"groqkit/pkg/groq"
)

type chatCompleter interface {
	ChatCompletion(ctx context.Context, req groq.ChatCompletionRequest) (*groq.ChatCompletionResponse, error)
}

type chatOptions struct {
	model       string
	system      string
	temperature float64
	maxTokens   int
}

func (o chatOptions) request(messages []groq.ChatMessage) groq.ChatCompletionRequest {
	req := groq.NewChatCompletionRequest(o.model, messages)
	if o.temperature >= 0 {
		req = req.WithTemperature(o.temperature)
	}
	if o.maxTokens > 0 {
		req = req.WithMaxTokens(o.maxTokens)
	}
	return req
}

func newChatCmd(e *env) *cobra.Command {
	opts := chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Ask a single question, or start an interactive chat session without arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client()
			if err != nil {
				return err
			}
			if opts.model == "" {
				opts.model = e.cfg.Defaults.ChatModel
			}

			ctx := cmd.Context()
			if len(args) > 0 {
				return chatOnce(ctx, client, opts, strings.Join(args, " "), cmd.OutOrStdout())
			}
			return chatREPL(ctx, client, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model (default from config)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "System message for the conversation")
	cmd.Flags().Float64VarP(&opts.temperature, "temperature", "t", -1, "Sampling temperature (API default when unset)")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Maximum tokens to generate (API default when unset)")
	return cmd
}

func initialMessages(system string) []groq.ChatMessage {
	if system == "" {
		return nil
	}
	return []groq.ChatMessage{groq.SystemMessage(system)}
}

func chatOnce(ctx context.Context, client chatCompleter, opts chatOptions, prompt string, out io.Writer) error {
	messages := append(initialMessages(opts.system), groq.UserMessage(prompt))
	resp, err := client.ChatCompletion(ctx, opts.request(messages))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, resp.FirstContent())
	return err
}

// chatREPL keeps the conversation history across turns. A failed turn is
// reported and dropped from the history so the user can retry.
func chatREPL(ctx context.Context, client chatCompleter, opts chatOptions, in io.Reader, out io.Writer) error {
	messages := initialMessages(opts.system)
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Starting chat session (type 'exit' to quit)")
	fmt.Fprintln(out, "----------------------------------------")

	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		messages = append(messages, groq.UserMessage(input))
		resp, err := client.ChatCompletion(ctx, opts.request(messages))
		if err != nil {
			messages = messages[:len(messages)-1]
			fmt.Fprintf(out, "\nError: %v\n", err)
			continue
		}

		reply := resp.FirstContent()
		messages = append(messages, groq.AssistantMessage(reply))
		fmt.Fprintf(out, "\nGroq: %s\n", reply)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
