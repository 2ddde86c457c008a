// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filing-intel/internal/adapters/driven/ai"
	"github.com/custodia-labs/filing-intel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/filing-intel/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
	"github.com/custodia-labs/filing-intel/internal/core/services"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configDir string
	dataDir   string
	verbose   bool
)

// Services wired by initServices. Tests replace these directly.
var (
	ingestService  driving.Ingestor
	answerService  driving.Answerer
	metricReporter driving.MetricReporter
	riskReporter   driving.RiskReporter
	companyStore   driven.CompanyStore
)

// Resources that need closing on exit.
var (
	store            *sqlite.Store
	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
)

// servicesWired short-circuits initialisation when services were
// injected, by tests or a previous run.
var servicesWired bool

var rootCmd = &cobra.Command{
	Use:   "filing-intel",
	Short: "Document intelligence and risk analysis for SEC filings",
	Long: `filing-intel ingests SEC filings (10-K, 10-Q, 8-K) into a searchable
knowledge base: filings are chunked by section, embedded for semantic
retrieval, and analysed for financial metrics, anomalies and
categorised risks. Questions are answered from indexed filing text
with source citations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		// Commands that don't touch the pipeline skip service wiring.
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		if servicesWired {
			return nil
		}
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.filing-intel)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.filing-intel/data)")
}

// Execute runs the root command.
func Execute() {
	defer closeServices()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initServices wires storage, AI providers and core services from
// configuration.
func initServices() error {
	cfg, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	prompts, err := file.NewPromptStore(promptDirFor(configDir))
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	store, err = sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	embeddingService, err = ai.CreateAndValidateEmbeddingService(embeddingSettings(cfg))
	if err != nil {
		return err
	}
	if embeddingService == nil {
		return fmt.Errorf("embedding provider not configured")
	}

	llmService, err = ai.CreateAndValidateLLMService(llmSettings(cfg))
	if err != nil {
		return err
	}
	if llmService == nil {
		return fmt.Errorf("llm provider not configured")
	}

	retry := services.RetryPolicy{}

	chunker := services.NewSectionChunker(
		services.WithChunkSize(cfg.GetInt("ingest.chunk_size")),
		services.WithOverlap(cfg.GetInt("ingest.chunk_overlap")),
	)
	chunkStore := store.ChunkStore()
	metricStore := store.MetricStore()
	riskStore := store.RiskStore()
	companyStore = store.CompanyStore()

	indexer := services.NewEmbeddingIndexer(chunkStore, embeddingService, retry, cfg.GetInt("ingest.embed_batch_size"))
	extractor := services.NewMetricExtractor(llmService, metricStore, retry)
	extractor.SetPromptStore(prompts)
	detector := services.NewAnomalyDetector(nil)
	scorer := services.NewRiskScorer(llmService, retry)
	scorer.SetPromptStore(prompts)

	ingestService = services.NewIngestPipeline(
		chunker, indexer, extractor, detector, scorer,
		chunkStore, metricStore, riskStore, companyStore,
		retry, cfg.GetInt("ingest.workers"),
	)

	retriever := services.NewRetrievalEngine(chunkStore, embeddingService, retry)
	synthesizer := services.NewAnswerSynthesizer(llmService, retry)
	synthesizer.SetPromptStore(prompts)
	answerService = services.NewAnswerService(retriever, synthesizer, companyStore)

	metricReporter = services.NewMetricReportService(metricStore, companyStore)
	riskReporter = services.NewRiskReportService(riskStore, companyStore)

	servicesWired = true
	return nil
}

// closeServices releases provider connections and the store.
func closeServices() {
	if embeddingService != nil {
		embeddingService.Close()
	}
	if llmService != nil {
		llmService.Close()
	}
	if store != nil {
		store.Close()
	}
}

// promptDirFor resolves the prompt directory beneath an explicit config
// directory; empty means the default location.
func promptDirFor(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "prompts")
}

// embeddingSettings reads the [embedding] config table. The provider
// defaults to a local Ollama instance so a fresh install works without
// API keys.
func embeddingSettings(cfg driven.ConfigStore) *ai.EmbeddingSettings {
	provider := cfg.GetString("embedding.provider")
	if provider == "" {
		provider = ai.ProviderOllama
	}
	return &ai.EmbeddingSettings{
		Provider:   provider,
		APIKey:     apiKeyFor(provider, cfg.GetString("embedding.api_key")),
		BaseURL:    cfg.GetString("embedding.base_url"),
		Model:      cfg.GetString("embedding.model"),
		Dimensions: cfg.GetInt("embedding.dimensions"),
	}
}

// llmSettings reads the [llm] config table.
func llmSettings(cfg driven.ConfigStore) *ai.LLMSettings {
	provider := cfg.GetString("llm.provider")
	if provider == "" {
		provider = ai.ProviderOllama
	}
	return &ai.LLMSettings{
		Provider:          provider,
		APIKey:            apiKeyFor(provider, cfg.GetString("llm.api_key")),
		BaseURL:           cfg.GetString("llm.base_url"),
		Model:             cfg.GetString("llm.model"),
		RequestsPerSecond: cfg.GetFloat("llm.requests_per_second"),
	}
}

// apiKeyFor falls back to the provider's conventional environment
// variable when the key is not in the config file.
func apiKeyFor(provider, configured string) string {
	if configured != "" {
		return configured
	}
	switch provider {
	case ai.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ai.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
