package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

func testFiling(text string) domain.Filing {
	return domain.Filing{
		DocumentID:      "doc-1",
		AccessionNumber: "0000320193-24-000123",
		CIK:             "0000320193",
		Ticker:          "AAPL",
		CompanyName:     "Apple Inc.",
		FilingType:      domain.FilingType10K,
		PeriodEnd:       time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC),
		Text:            text,
	}
}

// filler produces a paragraph of roughly n characters.
func filler(n int) string {
	sentence := "The company operates in a competitive market and results may vary from period to period. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String())
}

func tenKText() string {
	return "Item 1. Business\n\n" + filler(400) + "\n\n" + filler(400) +
		"\n\nItem 1A. Risk Factors\n\n" + filler(500) + "\n\n" + filler(500) +
		"\n\nItem 7. Management's Discussion and Analysis\n\n" + filler(600) +
		"\n\nItem 8. Financial Statements\n\n" + filler(300)
}

func TestSectionChunker_EmptyFiling(t *testing.T) {
	chunker := NewSectionChunker()

	chunks, err := chunker.Chunk(testFiling(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = chunker.Chunk(testFiling("   \n\n  "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSectionChunker_NoSectionMarkers(t *testing.T) {
	chunker := NewSectionChunker()

	_, err := chunker.Chunk(testFiling(filler(500)))
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestSectionChunker_RecognisesSections(t *testing.T) {
	chunker := NewSectionChunker()

	chunks, err := chunker.Chunk(testFiling(tenKText()))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	sections := make(map[string]bool)
	for _, c := range chunks {
		sections[c.Section] = true
	}
	assert.True(t, sections[domain.SectionBusiness])
	assert.True(t, sections[domain.SectionRiskFactors])
	assert.True(t, sections[domain.SectionMDA])
	assert.True(t, sections[domain.SectionFinancialStatements])
}

func TestSectionChunker_ChunkSizeNeverExceeded(t *testing.T) {
	chunker := NewSectionChunker(WithChunkSize(300), WithOverlap(50))

	chunks, err := chunker.Chunk(testFiling(tenKText()))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 300, "chunk %s", c.ID)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}

func TestSectionChunker_IndexRestartsPerSection(t *testing.T) {
	chunker := NewSectionChunker(WithChunkSize(300), WithOverlap(50))

	chunks, err := chunker.Chunk(testFiling(tenKText()))
	require.NoError(t, err)

	next := make(map[string]int)
	for _, c := range chunks {
		assert.Equal(t, next[c.Section], c.Index, "section %s", c.Section)
		next[c.Section]++
	}
	// More than one section must have chunk index zero.
	zeros := 0
	for _, c := range chunks {
		if c.Index == 0 {
			zeros++
		}
	}
	assert.Greater(t, zeros, 1)
}

func TestSectionChunker_ChunkIDsAreDeterministic(t *testing.T) {
	chunker := NewSectionChunker()
	filing := testFiling(tenKText())

	first, err := chunker.Chunk(filing)
	require.NoError(t, err)
	second, err := chunker.Chunk(filing)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.Equal(t, "doc-1_BUSINESS_0", first[0].ID)
}

func TestSectionChunker_SkipsTableOfContentsHits(t *testing.T) {
	chunker := NewSectionChunker()

	// A ToC-style marker followed by almost nothing, then the real section.
	text := "Item 1A. Risk Factors....4\n\nItem 1A. Risk Factors\n\n" + filler(500)
	chunks, err := chunker.Chunk(testFiling(text))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.Equal(t, domain.SectionRiskFactors, c.Section)
	}
	// Only the real section survives, so indices form one run.
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSectionChunker_StripsHTML(t *testing.T) {
	chunker := NewSectionChunker()

	text := "<html><body>Item 1A. Risk Factors<br/>\n\n<p>" + filler(500) + "</p></body></html>"
	chunks, err := chunker.Chunk(testFiling(text))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.NotContains(t, c.Text, "<")
	}
}

func TestSectionChunker_ChunkWhole(t *testing.T) {
	chunker := NewSectionChunker(WithChunkSize(300), WithOverlap(50))

	chunks := chunker.ChunkWhole(testFiling(filler(900)))
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, domain.SectionFullText, c.Section)
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, len(c.Text), 300)
	}
}

func TestSectionChunker_ChunkWhole_Empty(t *testing.T) {
	chunker := NewSectionChunker()
	assert.Empty(t, chunker.ChunkWhole(testFiling("")))
}

func TestSectionChunker_OverlapClampedBelowChunkSize(t *testing.T) {
	chunker := NewSectionChunker(WithChunkSize(200), WithOverlap(500))

	chunks := chunker.ChunkWhole(testFiling(filler(1000)))
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 200)
	}
}

func TestSectionChunker_MetadataCarriesProvenance(t *testing.T) {
	chunker := NewSectionChunker()
	filing := testFiling(tenKText())

	chunks, err := chunker.Chunk(filing)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	c := chunks[0]
	assert.Equal(t, filing.CIK, c.CIK)
	assert.Equal(t, filing.Ticker, c.Ticker)
	assert.Equal(t, filing.FilingType, c.FilingType)
	assert.Equal(t, filing.AccessionNumber, c.AccessionNumber)
	assert.Equal(t, filing.PeriodEnd, c.PeriodEnd)
	assert.Equal(t, "doc-1", c.Metadata["document_id"])
	assert.Equal(t, len(c.Text), c.Metadata["char_count"])
}
