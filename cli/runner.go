// Package cli wires configuration, providers, and the research loop for
// the command-line entry point.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/richinex/delver/config"
	"github.com/richinex/delver/llm"
	"github.com/richinex/delver/model"
	"github.com/richinex/delver/reasoning"
	"github.com/richinex/delver/research"
	"github.com/richinex/delver/search"
	"github.com/richinex/delver/storage"
)

// Options holds CLI-level configuration.
type Options struct {
	Provider      string
	MaxIterations int
	JSONOutput    bool
	NoArchive     bool
	Verbose       bool
}

// newLogger builds the CLI logger. Verbose mode enables debug output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Research runs one research question end to end and prints the report.
func Research(ctx context.Context, question string, opts Options) error {
	logger := newLogger(opts.Verbose)

	providerName := opts.Provider
	if providerName == "" {
		providerName = "openai"
	}

	settings, err := config.New(providerName)
	if err != nil {
		return err
	}
	if opts.MaxIterations > 0 {
		settings.Research.MaxIterations = opts.MaxIterations
	}

	provider, err := buildProvider(settings)
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Printf("Provider: %s (%s)\n", provider.Name(), provider.Model())
		fmt.Printf("Search backend: %s\n", settings.Search.Backend)
	}

	gateway, err := reasoning.New(ctx, provider, reasoning.Options{
		MaxIterations:           settings.Research.MaxIterations,
		EnableConceptExtraction: settings.Research.EnableConceptExtraction,
		EnableSourceValidation:  settings.Research.EnableSourceValidation,
	}, logger)
	if err != nil {
		return err
	}

	backend, err := buildSearchBackend(settings)
	if err != nil {
		return err
	}
	orchestrator := search.NewOrchestrator(backend,
		settings.Research.SearchTimeout,
		settings.Research.MaxResultsPerQuery,
		logger)

	cfg := model.Config{
		MaxIterations:           settings.Research.MaxIterations,
		MaxResultsPerQuery:      settings.Research.MaxResultsPerQuery,
		MinCompletenessScore:    settings.Research.MinCompletenessScore,
		SearchTimeout:           settings.Research.SearchTimeout,
		EnableConceptExtraction: settings.Research.EnableConceptExtraction,
		EnableSourceValidation:  settings.Research.EnableSourceValidation,
	}

	controller, err := research.NewController(gateway, orchestrator, cfg, logger)
	if err != nil {
		return err
	}

	result, err := controller.Run(ctx, question)
	if err != nil {
		return err
	}

	if opts.JSONOutput {
		data, err := research.JSONReport(result)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(research.MarkdownReport(result))
	}

	if !opts.NoArchive {
		if err := archiveResult(ctx, settings, result); err != nil {
			// Archiving is best-effort; the report is already printed.
			logger.Warn("failed to archive run", "error", err)
		}
	}

	if result.Failed() {
		return fmt.Errorf("research run failed: %s", result.ErrorMessage)
	}
	return nil
}

func archiveResult(ctx context.Context, settings config.Settings, result model.Result) error {
	archive, err := storage.Open(settings.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()
	return archive.Save(ctx, result)
}

// History lists archived runs, or shows one run in full when runID is set.
func History(ctx context.Context, runID string, limit int, jsonOutput bool) error {
	settings, err := config.New("openai") // provider irrelevant for history
	if err != nil {
		return err
	}

	archive, err := storage.Open(settings.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	if runID != "" {
		result, err := archive.Get(ctx, runID)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("run %q not found", runID)
		}
		if jsonOutput {
			data, err := research.JSONReport(*result)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			fmt.Print(research.MarkdownReport(*result))
		}
		return nil
	}

	summaries, err := archive.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	for _, s := range summaries {
		question := s.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}
		fmt.Printf("%s  %-10s  %2d iter  %3d sources  %s  %s\n",
			s.CompletedAt.Format("2006-01-02 15:04"),
			s.Status, s.Iterations, s.Sources, s.RunID, question)
	}
	return nil
}

// Providers prints the supported LLM providers and their configured models.
func Providers() {
	fmt.Println("Supported providers:")
	for _, name := range config.SupportedProviders() {
		modelName, err := config.ModelFor(name)
		if err != nil {
			continue
		}
		status := "missing API key"
		if _, err := config.APIKeyFor(name); err == nil {
			status = "configured"
		}
		fmt.Printf("  %-10s  model=%s  (%s)\n", name, modelName, status)
	}
}

func buildProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

func buildSearchBackend(settings config.Settings) (search.Capability, error) {
	apiKey := settings.Search.APIKey
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("no API key configured for search backend %q", settings.Search.Backend)
	}

	switch settings.Search.Backend {
	case "brave":
		return search.NewBrave(apiKey), nil
	default:
		return search.NewTavily(apiKey, ""), nil
	}
}
