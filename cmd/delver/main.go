// Package main provides the delver CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/delver/cli"
)

var (
	// Global flags
	provider string
	maxIter  int
	jsonOut  bool
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "delver",
		Short: "Iterative deep research from the command line",
		Long: `Delver answers questions by iteratively planning web searches,
folding evidence into a running summary, and asking a language model
to judge when enough has been learned to stop.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum research iterations (0 = use configured default)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of markdown")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(researchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(providersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func researchCmd() *cobra.Command {
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "research [question]",
		Short: "Run an iterative research loop for a question",
		Long: `Run the full research loop: plan searches, execute them, fold new
sources into a running summary, and stop when the completeness
assessment says enough has been learned.

Requires an LLM provider API key (e.g. OPENAI_API_KEY) and a search
API key (TAVILY_API_KEY or BRAVE_API_KEY) in the environment or a
.env file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.Options{
				Provider:      provider,
				MaxIterations: maxIter,
				JSONOutput:    jsonOut,
				NoArchive:     noArchive,
				Verbose:       verbose,
			}
			return cli.Research(context.Background(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip saving the run to the local archive")

	return cmd
}

func historyCmd() *cobra.Command {
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived research runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.History(context.Background(), runID, limit, jsonOut)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show one run in full by id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers and their configuration state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Providers()
			return nil
		},
	}
}
