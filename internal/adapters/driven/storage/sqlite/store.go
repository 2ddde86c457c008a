package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/filing-intel/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.filing-intel/data/filings.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".filing-intel", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "filings.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// MetricStore returns a MetricStore interface backed by this store.
func (s *Store) MetricStore() driven.MetricStore {
	return &metricStore{store: s}
}

// RiskStore returns a RiskStore interface backed by this store.
func (s *Store) RiskStore() driven.RiskStore {
	return &riskStore{store: s}
}

// CompanyStore returns a CompanyStore interface backed by this store.
func (s *Store) CompanyStore() driven.CompanyStore {
	return &companyStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// encodeVector serialises a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserialises a little-endian byte blob into a float32 vector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// marshalMetadata serialises a metadata map, tolerating nil.
func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return jsonNull, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

// unmarshalMetadata deserialises a metadata column, tolerating null.
func unmarshalMetadata(s string) (map[string]any, error) {
	if s == "" || s == jsonNull {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return m, nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// UpsertChunk stores or replaces a chunk by ID.
func (s *chunkStore) UpsertChunk(ctx context.Context, chunk domain.Chunk) error {
	metadataJSON, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO chunks (id, cik, ticker, filing_type, accession_number, period_end, section, content, chunk_index, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cik = excluded.cik,
			ticker = excluded.ticker,
			filing_type = excluded.filing_type,
			accession_number = excluded.accession_number,
			period_end = excluded.period_end,
			section = excluded.section,
			content = excluded.content,
			chunk_index = excluded.chunk_index,
			metadata = excluded.metadata
	`, chunk.ID, chunk.CIK, chunk.Ticker, chunk.FilingType, chunk.AccessionNumber,
		chunk.PeriodEnd.UTC(), chunk.Section, chunk.Text, chunk.Index, metadataJSON)

	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, cik, ticker, filing_type, accession_number, period_end, section, content, chunk_index, metadata
		FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunk(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// ListChunks returns chunks filtered by company and section, ordered by ID.
func (s *chunkStore) ListChunks(ctx context.Context, cik, section string) ([]domain.Chunk, error) {
	query := `
		SELECT id, cik, ticker, filing_type, accession_number, period_end, section, content, chunk_index, metadata
		FROM chunks`
	var conds []string
	var args []any
	if cik != "" {
		conds = append(conds, "cik = ?")
		args = append(args, cik)
	}
	if section != "" {
		conds = append(conds, "section = ?")
		args = append(args, section)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

// DeleteFilingChunks removes every chunk and embedding of a filing instance.
func (s *chunkStore) DeleteFilingChunks(ctx context.Context, accessionNumber string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE accession_number = ?)
	`, accessionNumber); err != nil {
		return fmt.Errorf("deleting embeddings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE accession_number = ?", accessionNumber); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// UpsertEmbedding stores or replaces the embedding for a chunk.
func (s *chunkStore) UpsertEmbedding(ctx context.Context, emb domain.Embedding) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, cik, vector, model, content_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			cik = excluded.cik,
			vector = excluded.vector,
			model = excluded.model,
			content_hash = excluded.content_hash
	`, emb.ChunkID, emb.CIK, encodeVector(emb.Vector), emb.Model, emb.ContentHash)

	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the embedding for a chunk.
func (s *chunkStore) GetEmbedding(ctx context.Context, chunkID string) (*domain.Embedding, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT chunk_id, cik, vector, model, content_hash
		FROM embeddings WHERE chunk_id = ?
	`, chunkID)

	var emb domain.Embedding
	var blob []byte
	if err := row.Scan(&emb.ChunkID, &emb.CIK, &blob, &emb.Model, &emb.ContentHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	emb.Vector = decodeVector(blob)

	return &emb, nil
}

// ListEmbeddings returns candidate embeddings, filtered by company when
// cik is non-empty.
func (s *chunkStore) ListEmbeddings(ctx context.Context, cik string) ([]domain.Embedding, error) {
	query := "SELECT chunk_id, cik, vector, model, content_hash FROM embeddings"
	var args []any
	if cik != "" {
		query += " WHERE cik = ?"
		args = append(args, cik)
	}
	query += " ORDER BY chunk_id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []domain.Embedding //nolint:prealloc // size unknown from query
	for rows.Next() {
		var emb domain.Embedding
		var blob []byte
		if err := rows.Scan(&emb.ChunkID, &emb.CIK, &blob, &emb.Model, &emb.ContentHash); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		emb.Vector = decodeVector(blob)
		embeddings = append(embeddings, emb)
	}
	return embeddings, rows.Err()
}

// EmbeddingModels returns the distinct embedding model names in the index.
func (s *chunkStore) EmbeddingModels(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT DISTINCT model FROM embeddings ORDER BY model")
	if err != nil {
		return nil, fmt.Errorf("querying embedding models: %w", err)
	}
	defer rows.Close()

	var models []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		models = append(models, model)
	}
	return models, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChunk reads one chunk row.
func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var periodEnd sql.NullTime
	var metadataJSON string
	if err := row.Scan(&chunk.ID, &chunk.CIK, &chunk.Ticker, &chunk.FilingType,
		&chunk.AccessionNumber, &periodEnd, &chunk.Section, &chunk.Text,
		&chunk.Index, &metadataJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	if periodEnd.Valid {
		chunk.PeriodEnd = periodEnd.Time.UTC()
	}

	metadata, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	chunk.Metadata = metadata

	return &chunk, nil
}

// ==================== Metric Store ====================

// metricStore implements driven.MetricStore.
type metricStore struct {
	store *Store
}

var _ driven.MetricStore = (*metricStore)(nil)

// UpsertMetric stores or replaces a record by its natural key.
func (s *metricStore) UpsertMetric(ctx context.Context, rec domain.MetricRecord) error {
	metadataJSON, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO metrics (id, cik, ticker, filing_type, period_end, name, value, unit, yoy_change, anomaly, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ticker = excluded.ticker,
			filing_type = excluded.filing_type,
			value = excluded.value,
			unit = excluded.unit,
			yoy_change = excluded.yoy_change,
			anomaly = excluded.anomaly,
			metadata = excluded.metadata
	`, rec.ID, rec.CIK, rec.Ticker, rec.FilingType, rec.PeriodEnd.UTC(),
		rec.Name, rec.Value, rec.Unit, rec.YoYChange, rec.Anomaly, metadataJSON)

	if err != nil {
		return fmt.Errorf("saving metric: %w", err)
	}
	return nil
}

// ListMetrics returns all records for a company, newest period first.
func (s *metricStore) ListMetrics(ctx context.Context, cik string) ([]domain.MetricRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, cik, ticker, filing_type, period_end, name, value, unit, yoy_change, anomaly, metadata
		FROM metrics WHERE cik = ?
		ORDER BY period_end DESC, name ASC
	`, cik)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var records []domain.MetricRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.MetricRecord
		var periodEnd sql.NullTime
		var yoy sql.NullFloat64
		var metadataJSON string
		if err := rows.Scan(&rec.ID, &rec.CIK, &rec.Ticker, &rec.FilingType,
			&periodEnd, &rec.Name, &rec.Value, &rec.Unit, &yoy, &rec.Anomaly,
			&metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		if periodEnd.Valid {
			rec.PeriodEnd = periodEnd.Time.UTC()
		}
		if yoy.Valid {
			v := yoy.Float64
			rec.YoYChange = &v
		}

		metadata, err := unmarshalMetadata(metadataJSON)
		if err != nil {
			return nil, err
		}
		rec.Metadata = metadata

		records = append(records, rec)
	}
	return records, rows.Err()
}

// PriorValues returns the most recent value per metric name strictly
// before the given period end.
func (s *metricStore) PriorValues(ctx context.Context, cik string, before time.Time) (map[string]float64, error) {
	// Ordered ascending so that later rows overwrite earlier ones,
	// leaving the most recent value per name.
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT name, value FROM metrics
		WHERE cik = ? AND period_end < ?
		ORDER BY period_end ASC
	`, cik, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying prior values: %w", err)
	}
	defer rows.Close()

	prior := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning prior value: %w", err)
		}
		prior[name] = value
	}
	return prior, rows.Err()
}

// ==================== Risk Store ====================

// riskStore implements driven.RiskStore.
type riskStore struct {
	store *Store
}

var _ driven.RiskStore = (*riskStore)(nil)

// UpsertAssessment stores or replaces an assessment by its natural key.
func (s *riskStore) UpsertAssessment(ctx context.Context, a domain.RiskAssessment) error {
	evidenceJSON, err := json.Marshal(a.Evidence)
	if err != nil {
		return fmt.Errorf("marshalling evidence: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, cik, ticker, period_end, category, score, summary, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ticker = excluded.ticker,
			score = excluded.score,
			summary = excluded.summary,
			evidence = excluded.evidence
	`, a.ID, a.CIK, a.Ticker, a.PeriodEnd.UTC(), string(a.Category),
		a.Score, a.Summary, string(evidenceJSON))

	if err != nil {
		return fmt.Errorf("saving assessment: %w", err)
	}
	return nil
}

// ListAssessments returns all assessments for a company, newest period first.
func (s *riskStore) ListAssessments(ctx context.Context, cik string) ([]domain.RiskAssessment, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, cik, ticker, period_end, category, score, summary, evidence
		FROM risk_assessments WHERE cik = ?
		ORDER BY period_end DESC, category ASC
	`, cik)
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var assessments []domain.RiskAssessment //nolint:prealloc // size unknown from query
	for rows.Next() {
		var a domain.RiskAssessment
		var periodEnd sql.NullTime
		var category, evidenceJSON string
		if err := rows.Scan(&a.ID, &a.CIK, &a.Ticker, &periodEnd, &category,
			&a.Score, &a.Summary, &evidenceJSON); err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		a.Category = domain.RiskCategory(category)
		if periodEnd.Valid {
			a.PeriodEnd = periodEnd.Time.UTC()
		}
		if evidenceJSON != "" && evidenceJSON != jsonNull {
			if err := json.Unmarshal([]byte(evidenceJSON), &a.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshaling evidence: %w", err)
			}
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

// ==================== Company Store ====================

// companyStore implements driven.CompanyStore.
type companyStore struct {
	store *Store
}

var _ driven.CompanyStore = (*companyStore)(nil)

// UpsertCompany stores or replaces a company by CIK.
func (s *companyStore) UpsertCompany(ctx context.Context, c domain.Company) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO companies (cik, ticker, name, sic_code, sector, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cik) DO UPDATE SET
			ticker = excluded.ticker,
			name = excluded.name,
			sic_code = excluded.sic_code,
			sector = excluded.sector,
			active = excluded.active
	`, c.CIK, c.Ticker, c.Name, c.SICCode, c.Sector, c.Active)

	if err != nil {
		return fmt.Errorf("saving company: %w", err)
	}
	return nil
}

// GetCompany retrieves a company by CIK.
func (s *companyStore) GetCompany(ctx context.Context, cik string) (*domain.Company, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT cik, ticker, name, sic_code, sector, active
		FROM companies WHERE cik = ?
	`, cik)
	return scanCompany(row)
}

// GetCompanyByTicker retrieves a company by ticker, case-insensitively.
func (s *companyStore) GetCompanyByTicker(ctx context.Context, ticker string) (*domain.Company, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT cik, ticker, name, sic_code, sector, active
		FROM companies WHERE ticker = ? COLLATE NOCASE
	`, ticker)
	return scanCompany(row)
}

// ListCompanies returns every company ordered by CIK.
func (s *companyStore) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT cik, ticker, name, sic_code, sector, active
		FROM companies ORDER BY cik
	`)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.CIK, &c.Ticker, &c.Name, &c.SICCode, &c.Sector, &c.Active); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// scanCompany reads one company row.
func scanCompany(row *sql.Row) (*domain.Company, error) {
	var c domain.Company
	if err := row.Scan(&c.CIK, &c.Ticker, &c.Name, &c.SICCode, &c.Sector, &c.Active); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning company: %w", err)
	}
	return &c, nil
}
