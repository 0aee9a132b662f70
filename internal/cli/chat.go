package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papyrus-labs/scholarag/internal/store"
	openaiTransport "github.com/papyrus-labs/scholarag/internal/transport/openai"
	answeruc "github.com/papyrus-labs/scholarag/internal/usecase/answer"
	botuc "github.com/papyrus-labs/scholarag/internal/usecase/bot"
	retrieveuc "github.com/papyrus-labs/scholarag/internal/usecase/retrieve"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answering session on the terminal",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := store.Open(cfg.Store.Dir, cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("open store (run \"scholarag ingest\" first): %w", err)
	}

	embedder, _, closeCache, err := buildEmbedder(cfg, log)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	defer closeCache()

	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:  log,
	})

	retriever := retrieveuc.New(st, embedder, log)
	generator := answeruc.New(completer, log)
	bot := botuc.New(retriever, generator, cfg.Store.TopK,
		cfg.LLM.AnswerLengths, cfg.LLM.DefaultLength, log)

	in := bufio.NewScanner(cmd.InOrStdin())

	length := promptLength(cmd, in, bot.Lengths())
	if length == "" {
		return nil
	}

	cmd.Println("\nAsk your questions (type \"exit\" to quit):")
	for {
		cmd.Print("\nYou: ")
		if !in.Scan() {
			break
		}
		query := strings.TrimSpace(in.Text())
		if query == "" {
			continue
		}
		if q := strings.ToLower(query); q == "exit" || q == "quit" {
			break
		}

		start := time.Now()
		answer, err := bot.Ask(cmd.Context(), query, length)
		if err != nil {
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		log.Info("Question processed", zap.Duration("duration", time.Since(start)))

		cmd.Printf("\nAnswer:\n%s\n", answer.Text)
		if len(answer.Citations) > 0 {
			cmd.Println("\nSources:")
			for _, c := range answer.Citations {
				cmd.Printf(" - %s\n", c.String())
			}
		}
		cmd.Println("\n" + strings.Repeat("-", 50))
	}

	return in.Err()
}

// promptLength asks for an answer-length preset until a valid one is chosen.
// Returns "" on EOF.
func promptLength(cmd *cobra.Command, in *bufio.Scanner, lengths []string) string {
	options := strings.Join(lengths, ", ")
	for {
		cmd.Printf("Choose answer length (%s): ", options)
		if !in.Scan() {
			return ""
		}
		choice := strings.ToLower(strings.TrimSpace(in.Text()))
		for _, l := range lengths {
			if choice == l {
				return choice
			}
		}
		cmd.Printf("Invalid choice. Please select from: %s\n", options)
	}
}
