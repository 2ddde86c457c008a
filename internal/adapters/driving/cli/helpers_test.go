package cli

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/filing-intel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/core/services"
)

// Fixtures wired by setupTestServices, reachable from command tests for
// seeding and assertions.
var (
	testLLM          *mockLLMService
	testEmbedder     *mockEmbeddingService
	testChunkStore   *memory.ChunkStore
	testMetricStore  *memory.MetricStore
	testRiskStore    *memory.RiskStore
	testCompanyStore *memory.CompanyStore
)

// setupTestServices wires the real core services over in-memory stores
// and mock providers, and returns a cleanup restoring the previous
// package state.
func setupTestServices() func() {
	oldIngest := ingestService
	oldAnswer := answerService
	oldMetricReporter := metricReporter
	oldRiskReporter := riskReporter
	oldCompanyStore := companyStore
	oldWired := servicesWired

	testLLM = &mockLLMService{}
	testEmbedder = &mockEmbeddingService{}
	testChunkStore = memory.NewChunkStore()
	testMetricStore = memory.NewMetricStore()
	testRiskStore = memory.NewRiskStore()
	testCompanyStore = memory.NewCompanyStore()

	retry := services.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	chunker := services.NewSectionChunker()
	indexer := services.NewEmbeddingIndexer(testChunkStore, testEmbedder, retry, 0)
	extractor := services.NewMetricExtractor(testLLM, testMetricStore, retry)
	detector := services.NewAnomalyDetector(nil)
	scorer := services.NewRiskScorer(testLLM, retry)

	ingestService = services.NewIngestPipeline(
		chunker, indexer, extractor, detector, scorer,
		testChunkStore, testMetricStore, testRiskStore, testCompanyStore,
		retry, 1,
	)

	retriever := services.NewRetrievalEngine(testChunkStore, testEmbedder, retry)
	synthesizer := services.NewAnswerSynthesizer(testLLM, retry)
	answerService = services.NewAnswerService(retriever, synthesizer, testCompanyStore)

	metricReporter = services.NewMetricReportService(testMetricStore, testCompanyStore)
	riskReporter = services.NewRiskReportService(testRiskStore, testCompanyStore)
	companyStore = testCompanyStore

	servicesWired = true

	return func() {
		ingestService = oldIngest
		answerService = oldAnswer
		metricReporter = oldMetricReporter
		riskReporter = oldRiskReporter
		companyStore = oldCompanyStore
		servicesWired = oldWired
	}
}

// seedCompany registers a company in the test company store.
func seedCompany(cik, ticker string) {
	_ = testCompanyStore.UpsertCompany(context.Background(), domain.Company{
		CIK:    cik,
		Ticker: ticker,
		Name:   ticker + " Inc.",
		Active: true,
	})
}

// mockEmbeddingService implements driven.EmbeddingService. Every text
// embeds to the same vector so any seeded chunk scores a perfect match.
type mockEmbeddingService struct {
	embedErr error
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1, 0, 0}
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 3 }

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService implements driven.LLMService. Responses are served in
// order; the last one repeats once the queue runs out.
type mockLLMService struct {
	mu          sync.Mutex
	responses   []string
	generateErr error
	calls       int
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.generateErr != nil {
		return "", m.generateErr
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := m.calls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }

func (m *mockLLMService) Ping(_ context.Context) error { return nil }

func (m *mockLLMService) Close() error { return nil }
