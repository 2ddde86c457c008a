package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// DefaultChunkSize is the default maximum chunk length in characters.
const DefaultChunkSize = 1500

// DefaultChunkOverlap is the default overlap window between consecutive
// chunks of the same section, in characters.
const DefaultChunkOverlap = 200

// minSectionLength filters out table-of-contents hits: a matched section
// marker followed by less text than this is skipped, not chunked.
const minSectionLength = 100

// sectionPattern ties a canonical section name to its filing heading.
type sectionPattern struct {
	name string
	re   *regexp.Regexp
}

// Section heading patterns for 10-K/10-Q item structure. Order is not
// significant; matches are sorted by position in the document.
var sectionPatterns = []sectionPattern{
	{domain.SectionBusiness, regexp.MustCompile(`(?i)item\s*1\.?\s*business`)},
	{domain.SectionRiskFactors, regexp.MustCompile(`(?i)item\s*1a\.?\s*risk\s*factors`)},
	{domain.SectionLegalProceedings, regexp.MustCompile(`(?i)item\s*3\.?\s*legal\s*proceedings`)},
	{domain.SectionMDA, regexp.MustCompile(`(?i)item\s*7\.?\s*management['’]?s?\s*discussion`)},
	{domain.SectionFinancialStatements, regexp.MustCompile(`(?i)item\s*8\.?\s*financial\s*statements`)},
	{domain.SectionControls, regexp.MustCompile(`(?i)item\s*9a\.?\s*controls`)},
}

var (
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
	newlineRunRe  = regexp.MustCompile(`\n{3,}`)
	paragraphRe   = regexp.MustCompile(`\n\s*\n`)
	sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)
)

// SectionChunker splits raw filing text into bounded chunks aligned to
// document sections.
type SectionChunker struct {
	chunkSize int
	overlap   int
}

// ChunkerOption configures the section chunker.
type ChunkerOption func(*SectionChunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) ChunkerOption {
	return func(c *SectionChunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap window between chunks in characters.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *SectionChunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewSectionChunker creates a section chunker with the given options.
func NewSectionChunker(opts ...ChunkerOption) *SectionChunker {
	c := &SectionChunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new content in every chunk.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// namedSection is a slice of filing text under one recognised heading.
type namedSection struct {
	name string
	text string
}

// Chunk splits a filing into section-aligned chunks. The ordinal index
// restarts at zero for each section. An empty filing produces no chunks;
// a nonempty filing with no recognisable section markers returns
// domain.ErrMalformedDocument so the caller can decide whether to fall
// back to whole-document chunking.
func (c *SectionChunker) Chunk(filing domain.Filing) ([]domain.Chunk, error) {
	text := cleanText(filing.Text)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sections := extractSections(text)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: filing %s", domain.ErrMalformedDocument, filing.AccessionNumber)
	}

	var chunks []domain.Chunk
	for _, sec := range sections {
		pieces := c.splitText(sec.text)
		logger.Debug("Section %s: %d chunks", sec.name, len(pieces))
		for i, piece := range pieces {
			chunks = append(chunks, c.newChunk(filing, sec.name, i, piece))
		}
	}

	return chunks, nil
}

// ChunkWhole chunks a filing as a single unstructured document. Used as
// the fallback after Chunk reports a malformed document.
func (c *SectionChunker) ChunkWhole(filing domain.Filing) []domain.Chunk {
	text := cleanText(filing.Text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := c.splitText(text)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, c.newChunk(filing, domain.SectionFullText, i, piece))
	}
	return chunks
}

func (c *SectionChunker) newChunk(filing domain.Filing, section string, index int, text string) domain.Chunk {
	docID := filing.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}
	return domain.Chunk{
		ID:              fmt.Sprintf("%s_%s_%d", docID, section, index),
		CIK:             filing.CIK,
		Ticker:          filing.Ticker,
		FilingType:      filing.FilingType,
		AccessionNumber: filing.AccessionNumber,
		PeriodEnd:       filing.PeriodEnd,
		Section:         section,
		Text:            text,
		Index:           index,
		Metadata: map[string]any{
			"document_id": filing.DocumentID,
			"char_count":  len(text),
		},
	}
}

// cleanText strips leftover HTML tags and normalises whitespace while
// preserving paragraph boundaries.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// extractSections locates all recognised section headings and slices the
// text between consecutive headings. Degenerate sections (shorter than
// minSectionLength, typically table-of-contents hits) are skipped.
func extractSections(text string) []namedSection {
	type marker struct {
		pos  int
		name string
	}

	var markers []marker
	for _, p := range sectionPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			markers = append(markers, marker{pos: loc[0], name: p.name})
		}
	}
	if len(markers) == 0 {
		return nil
	}

	// Sort by position in the document.
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j].pos < markers[j-1].pos; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}

	var sections []namedSection
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].pos
		}
		body := strings.TrimSpace(text[m.pos:end])
		if len(body) < minSectionLength {
			continue
		}
		sections = append(sections, namedSection{name: m.name, text: body})
	}

	return sections
}

// splitText splits section text into chunks of at most chunkSize
// characters, preferring paragraph boundaries and falling back to
// sentence boundaries for oversized paragraphs. Consecutive chunks share
// an overlap window so retrieval context is not severed.
func (c *SectionChunker) splitText(text string) []string {
	var chunks []string
	var cur string

	flush := func() {
		if s := strings.TrimSpace(cur); s != "" {
			chunks = append(chunks, s)
		}
		cur = ""
	}

	for _, para := range paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > c.chunkSize {
			flush()
			parts := c.splitSentences(para)
			for i, part := range parts {
				if i == len(parts)-1 {
					cur = part
				} else {
					chunks = append(chunks, part)
				}
			}
			continue
		}

		if cur == "" {
			cur = para
			continue
		}

		if len(cur)+2+len(para) <= c.chunkSize {
			cur += "\n\n" + para
			continue
		}

		// Seed the next chunk with the tail of the previous one.
		tail := overlapTail(cur, c.overlap)
		flush()
		if tail != "" && len(tail)+1+len(para) <= c.chunkSize {
			cur = tail + " " + para
		} else {
			cur = para
		}
	}

	flush()
	return chunks
}

// splitSentences cuts an oversized paragraph at sentence ends into
// pieces of at most chunkSize characters. A single sentence longer than
// chunkSize is hard-split.
func (c *SectionChunker) splitSentences(para string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(para, -1) {
		// Cut after the punctuation, before the whitespace.
		sentences = append(sentences, strings.TrimSpace(para[last:loc[0]+1]))
		last = loc[1]
	}
	if last < len(para) {
		sentences = append(sentences, strings.TrimSpace(para[last:]))
	}

	var pieces []string
	var cur string
	for _, s := range sentences {
		for len(s) > c.chunkSize {
			if cur != "" {
				pieces = append(pieces, cur)
				cur = ""
			}
			pieces = append(pieces, s[:c.chunkSize])
			s = strings.TrimSpace(s[c.chunkSize:])
		}
		if s == "" {
			continue
		}
		switch {
		case cur == "":
			cur = s
		case len(cur)+1+len(s) <= c.chunkSize:
			cur += " " + s
		default:
			pieces = append(pieces, cur)
			cur = s
		}
	}
	if cur != "" {
		pieces = append(pieces, cur)
	}

	return pieces
}

// overlapTail returns the last n characters of text, cut forward to a
// word boundary so the overlap never starts mid-word.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	tail := text[len(text)-n:]
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
