package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/shared/utils"
)

var (
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kbctl",
	Short: "Knowledge base maintenance for the retail chatbot",
	Long: `Build, inspect and query the FAQ knowledge base index.

Settings come from the same environment (.env) as the chatbot server:
VECTOR_BACKEND, VECTOR_DATA_DIR, QDRANT_*, OPENAI_API_KEY, EMBEDDING_*.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		utils.InitLogger(level, "")
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newBuildCmd(openRetriever))
	rootCmd.AddCommand(newAskCmd(openRetriever))
	rootCmd.AddCommand(newAddCmd(openRetriever))
	rootCmd.AddCommand(newStatsCmd(openRetriever))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openRetriever() (knowledgeBase, error) {
	r, err := kb.Open(kb.SetupFromConfig(config.LoadConfig()))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
