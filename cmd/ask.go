package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/spf13/cobra"
)

var (
	askData     string
	askFigure   string
	askJSON     bool
	askQuiet    bool
	askProvider string
	askModel    string
	askOllama   string
)

var askCmd = &cobra.Command{
	Use:   "ask [--data file.csv] <question>",
	Short: "Ask one question from the terminal and run the returned analysis",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question cannot be empty")
		}
		var logger log.Interface = log.Log
		if askJSON || askQuiet {
			logger = &log.Logger{Handler: discard.New(), Level: log.InfoLevel}
		}
		sess, info, err := newSession(cfg, sessionOptions{
			Runtime: runtimeOptions{ProviderFlag: askProvider, OllamaHost: askOllama},
			Model:   askModel,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		if askData != "" {
			data, err := os.ReadFile(askData)
			if err != nil {
				return fmt.Errorf("read dataset: %w", err)
			}
			if err := sess.Upload(filepath.Base(askData), data); err != nil {
				return fmt.Errorf("could not read %s: %w", askData, err)
			}
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		user, assistant, err := sess.Ask(ctx, question)
		if err != nil {
			return err
		}
		return formatAndWriteOutput(user, assistant, outputOptions{
			JSON:       askJSON,
			Quiet:      askQuiet,
			Model:      info.Model,
			Provider:   info.Provider,
			FigurePath: askFigure,
			Writer:     cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askData, "data", "d", "", "CSV file exposed to the analysis as df")
	askCmd.Flags().StringVarP(&askFigure, "figure", "f", "", "path to save the produced chart (PNG)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the turn as JSON")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "print only the results")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "model provider: openai|openrouter|ollama (default from config)")
	askCmd.Flags().StringVar(&askModel, "model", "", "model identifier (default from config, gpt-4o)")
	askCmd.Flags().StringVar(&askOllama, "ollama-host", "", "Ollama host when --provider=ollama")
}
