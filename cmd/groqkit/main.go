// Package main is the groqkit command: a terminal client for the Groq chat,
// speech-to-text and text-to-speech APIs, and a local HTTP bridge to them.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"groqkit/config"
	"groqkit/internal/app"
	"groqkit/internal/version"
	"groqkit/pkg/groq"
)

// errNoAPIKey is returned by commands that call the API without a key configured.
var errNoAPIKey = errors.New("GROQ_API_KEY is not set; export it or add it to .env")

// env is the state shared by all subcommands once configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// client returns a blocking client for one-off CLI calls.
func (e *env) client() (*groq.Client, error) {
	if e.cfg.Groq.APIKey == "" {
		return nil, errNoAPIKey
	}
	return app.NewClient(e.cfg, e.logger, groq.Hooks{}), nil
}

func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "groqkit",
		Short:         "Chat, transcribe and speak with the Groq API",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.Logging.Level = level
			}
			logger, err := app.NewLogger(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			e.cfg, e.logger = cfg, logger
			return nil
		},
	}
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(e),
		newChatCmd(e),
		newTranscribeCmd(e),
		newSpeakCmd(e),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
