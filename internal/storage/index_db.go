package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver.
	DriverCGO = "sqlite3"
	// DriverPureGo is the modernc.org/sqlite driver.
	DriverPureGo = "sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Options struct {
	Driver string
	Path   string
}

type IndexDB struct {
	db   *sql.DB
	path string
}

// NewIndexDB opens (creating if needed) the index at dbPath with the default driver.
func NewIndexDB(dbPath string) (*IndexDB, error) {
	return Open(Options{Driver: DriverCGO, Path: dbPath})
}

// Open opens the index described by opts, creating the file and schema if
// they do not exist.
func Open(opts Options) (*IndexDB, error) {
	indexDB, err := open(opts)
	if err != nil {
		return nil, err
	}
	if err := indexDB.initSchema(); err != nil {
		indexDB.db.Close()
		return nil, apperrors.Storage("initializing schema", err)
	}
	return indexDB, nil
}

// OpenExisting opens an index that must already have been built. It
// returns ErrStoreNotFound when the file or its schema is missing.
func OpenExisting(opts Options) (*IndexDB, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrStoreNotFound, opts.Path)
		}
		return nil, apperrors.Storage("stat index file", err)
	}

	indexDB, err := open(opts)
	if err != nil {
		return nil, err
	}
	for _, table := range requiredTables {
		var name string
		err := indexDB.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			indexDB.db.Close()
			return nil, fmt.Errorf("%w: %s has no %s table", apperrors.ErrStoreNotFound, opts.Path, table)
		}
		if err != nil {
			indexDB.db.Close()
			return nil, apperrors.Storage("inspecting schema", err)
		}
	}
	return indexDB, nil
}

func open(opts Options) (*IndexDB, error) {
	if opts.Driver == "" {
		opts.Driver = DriverCGO
	}

	var dsn string
	switch opts.Driver {
	case DriverCGO:
		dsn = opts.Path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	case DriverPureGo:
		dsn = opts.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		return nil, fmt.Errorf("%w: sqlite driver %q", apperrors.ErrUnsupportedOption, opts.Driver)
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, apperrors.Storage("opening index database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Storage("connecting to index database", err)
	}

	return &IndexDB{db: db, path: opts.Path}, nil
}

func (idb *IndexDB) initSchema() error {
	_, err := idb.db.Exec(Schema)
	return err
}

func (idb *IndexDB) Close() error {
	return idb.db.Close()
}

// Path returns the database file path.
func (idb *IndexDB) Path() string {
	return idb.path
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (idb *IndexDB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := idb.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage("beginning transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Storage("committing transaction", err)
	}
	return nil
}

// IsDocumentIndexed reports whether a document with docHash exists.
func (idb *IndexDB) IsDocumentIndexed(ctx context.Context, q DBTX, docHash string) (bool, error) {
	if q == nil {
		q = idb.db
	}
	var exists bool
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM documents WHERE doc_hash = ?)",
		docHash,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Storage("checking document hash", err)
	}
	return exists, nil
}

// SaveDocumentInTransaction writes the document row, creates or updates
// every term row and inserts one unscored posting per term. Terms are
// written in sorted order so that term ids are reproducible.
func (idb *IndexDB) SaveDocumentInTransaction(ctx context.Context, tx *sql.Tx, doc *Document, terms map[string]TermStats) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO documents (url, title, doc_hash, text_length, term_count, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.URL, doc.Title, doc.DocHash, doc.TextLength, len(terms),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, apperrors.Storage("inserting document", err)
	}
	docID, err := result.LastInsertId()
	if err != nil {
		return 0, apperrors.Storage("reading document id", err)
	}

	getTermStmt, err := tx.PrepareContext(ctx, "SELECT id FROM terms WHERE term = ?")
	if err != nil {
		return 0, apperrors.Storage("preparing term lookup", err)
	}
	defer getTermStmt.Close()

	insertTermStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO terms (term, document_frequency, total_occurrences) VALUES (?, 1, ?)")
	if err != nil {
		return 0, apperrors.Storage("preparing term insert", err)
	}
	defer insertTermStmt.Close()

	updateTermStmt, err := tx.PrepareContext(ctx,
		`UPDATE terms
		 SET document_frequency = document_frequency + 1,
		     total_occurrences = total_occurrences + ?
		 WHERE id = ?`)
	if err != nil {
		return 0, apperrors.Storage("preparing term update", err)
	}
	defer updateTermStmt.Close()

	insertPostingStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO postings (term_id, doc_id, term_frequency, tf_idf_score, positions) VALUES (?, ?, ?, NULL, ?)")
	if err != nil {
		return 0, apperrors.Storage("preparing posting insert", err)
	}
	defer insertPostingStmt.Close()

	sorted := make([]string, 0, len(terms))
	for term := range terms {
		sorted = append(sorted, term)
	}
	sort.Strings(sorted)

	for _, term := range sorted {
		stats := terms[term]
		var termID int64

		err := getTermStmt.QueryRowContext(ctx, term).Scan(&termID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := insertTermStmt.ExecContext(ctx, term, stats.Frequency)
			if err != nil {
				return 0, apperrors.Storage(fmt.Sprintf("inserting term %q", term), err)
			}
			termID, err = res.LastInsertId()
			if err != nil {
				return 0, apperrors.Storage("reading term id", err)
			}
		case err != nil:
			return 0, apperrors.Storage(fmt.Sprintf("querying term %q", term), err)
		default:
			if _, err := updateTermStmt.ExecContext(ctx, stats.Frequency, termID); err != nil {
				return 0, apperrors.Storage(fmt.Sprintf("updating statistics for term %q", term), err)
			}
		}

		positions, err := encodePositions(stats.Positions)
		if err != nil {
			return 0, err
		}
		if _, err := insertPostingStmt.ExecContext(ctx, termID, docID, stats.Frequency, positions); err != nil {
			return 0, apperrors.Storage(fmt.Sprintf("inserting posting for term %q", term), err)
		}
	}

	return docID, nil
}

// Reset deletes every posting, term, document and metadata row.
func (idb *IndexDB) Reset(ctx context.Context) error {
	return idb.InTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"postings", "terms", "documents", "index_metadata"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return apperrors.Storage("clearing "+table, err)
			}
		}
		return nil
	})
}

func (idb *IndexDB) SetMetadata(ctx context.Context, key, value string) error {
	return setMetadata(ctx, idb.db, key, value)
}

func setMetadata(ctx context.Context, q DBTX, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO index_metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return apperrors.Storage("writing metadata "+key, err)
	}
	return nil
}

// Metadata returns the value stored under key and whether it exists.
func (idb *IndexDB) Metadata(ctx context.Context, key string) (string, bool, error) {
	var value sql.NullString
	err := idb.db.QueryRowContext(ctx,
		"SELECT value FROM index_metadata WHERE key = ?",
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Storage("reading metadata "+key, err)
	}
	return value.String, true, nil
}

func (idb *IndexDB) DocumentCount(ctx context.Context) (int64, error) {
	return idb.count(ctx, "documents")
}

func (idb *IndexDB) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := idb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, apperrors.Storage("counting "+table, err)
	}
	return n, nil
}

// Stats returns row counts and the size of the database file.
func (idb *IndexDB) Stats(ctx context.Context) (IndexStats, error) {
	var stats IndexStats
	var err error
	if stats.Documents, err = idb.count(ctx, "documents"); err != nil {
		return IndexStats{}, err
	}
	if stats.Terms, err = idb.count(ctx, "terms"); err != nil {
		return IndexStats{}, err
	}
	if stats.Postings, err = idb.count(ctx, "postings"); err != nil {
		return IndexStats{}, err
	}
	if info, err := os.Stat(idb.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// HasUnscoredPostings reports whether any posting is still waiting for the
// statistics pass.
func (idb *IndexDB) HasUnscoredPostings(ctx context.Context) (bool, error) {
	var exists bool
	err := idb.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM postings WHERE tf_idf_score IS NULL)",
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Storage("checking unscored postings", err)
	}
	return exists, nil
}

// TermID resolves a normalized term to its id.
func (idb *IndexDB) TermID(ctx context.Context, term string) (int64, bool, error) {
	var id int64
	err := idb.db.QueryRowContext(ctx, "SELECT id FROM terms WHERE term = ?", term).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.Storage(fmt.Sprintf("looking up term %q", term), err)
	}
	return id, true, nil
}

// Term returns the full term row, or nil if the term is not indexed.
func (idb *IndexDB) Term(ctx context.Context, term string) (*Term, error) {
	t := &Term{}
	err := idb.db.QueryRowContext(ctx,
		"SELECT id, term, document_frequency, total_occurrences FROM terms WHERE term = ?",
		term,
	).Scan(&t.ID, &t.Term, &t.DocumentFrequency, &t.TotalOccurrences)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Sprintf("reading term %q", term), err)
	}
	return t, nil
}

// PostingsForTerm returns every posting of termID ordered by document id.
func (idb *IndexDB) PostingsForTerm(ctx context.Context, termID int64) ([]Posting, error) {
	rows, err := idb.db.QueryContext(ctx,
		`SELECT id, term_id, doc_id, term_frequency, tf_idf_score, positions
		 FROM postings WHERE term_id = ? ORDER BY doc_id`,
		termID,
	)
	if err != nil {
		return nil, apperrors.Storage("querying postings", err)
	}
	defer rows.Close()

	var postings []Posting
	for rows.Next() {
		var p Posting
		var score sql.NullFloat64
		var positions string
		if err := rows.Scan(&p.ID, &p.TermID, &p.DocID, &p.TermFrequency, &score, &positions); err != nil {
			return nil, apperrors.Storage("scanning posting", err)
		}
		p.TFIDF, p.Scored = score.Float64, score.Valid
		if p.Positions, err = decodePositions(positions); err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterating postings", err)
	}
	return postings, nil
}

// PostingCount returns how many postings exist for (termID, docID).
func (idb *IndexDB) PostingCount(ctx context.Context, termID, docID int64) (int, error) {
	var n int
	err := idb.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM postings WHERE term_id = ? AND doc_id = ?",
		termID, docID,
	).Scan(&n)
	if err != nil {
		return 0, apperrors.Storage("counting postings", err)
	}
	return n, nil
}

// Document returns the document row with id.
func (idb *IndexDB) Document(ctx context.Context, id int64) (*Document, error) {
	return idb.scanDocument(idb.db.QueryRowContext(ctx,
		`SELECT id, url, title, doc_hash, text_length, term_count, indexed_at
		 FROM documents WHERE id = ?`, id))
}

// DocumentByHash returns the document row with docHash.
func (idb *IndexDB) DocumentByHash(ctx context.Context, docHash string) (*Document, error) {
	return idb.scanDocument(idb.db.QueryRowContext(ctx,
		`SELECT id, url, title, doc_hash, text_length, term_count, indexed_at
		 FROM documents WHERE doc_hash = ?`, docHash))
}

func (idb *IndexDB) scanDocument(row *sql.Row) (*Document, error) {
	doc := &Document{}
	var indexedAt sql.NullString
	err := row.Scan(&doc.ID, &doc.URL, &doc.Title, &doc.DocHash, &doc.TextLength, &doc.TermCount, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("reading document", err)
	}
	doc.IndexedAt = parseTime(indexedAt.String)
	return doc, nil
}

// DocumentNorms returns, for every document with scored postings, the
// Euclidean norm of its tf-idf vector.
func (idb *IndexDB) DocumentNorms(ctx context.Context) (map[int64]float64, error) {
	rows, err := idb.db.QueryContext(ctx,
		`SELECT doc_id, tf_idf_score FROM postings
		 WHERE tf_idf_score IS NOT NULL
		 ORDER BY doc_id, id`)
	if err != nil {
		return nil, apperrors.Storage("querying posting scores", err)
	}
	defer rows.Close()

	sums := make(map[int64]float64)
	for rows.Next() {
		var docID int64
		var score float64
		if err := rows.Scan(&docID, &score); err != nil {
			return nil, apperrors.Storage("scanning posting score", err)
		}
		sums[docID] += score * score
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterating posting scores", err)
	}

	for docID, sum := range sums {
		sums[docID] = math.Sqrt(sum)
	}
	return sums, nil
}

// CheckConsistency lists terms whose document_frequency differs from the
// number of postings that reference them.
func (idb *IndexDB) CheckConsistency(ctx context.Context) ([]Inconsistency, error) {
	rows, err := idb.db.QueryContext(ctx,
		`SELECT t.id, t.term, t.document_frequency, COUNT(p.id)
		 FROM terms t LEFT JOIN postings p ON p.term_id = t.id
		 GROUP BY t.id
		 HAVING t.document_frequency != COUNT(p.id)
		 ORDER BY t.id`)
	if err != nil {
		return nil, apperrors.Storage("checking consistency", err)
	}
	defer rows.Close()

	var out []Inconsistency
	for rows.Next() {
		var inc Inconsistency
		if err := rows.Scan(&inc.TermID, &inc.Term, &inc.DocumentFrequency, &inc.Postings); err != nil {
			return nil, apperrors.Storage("scanning consistency row", err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterating consistency rows", err)
	}
	return out, nil
}

func encodePositions(positions []int) (string, error) {
	if positions == nil {
		positions = []int{}
	}
	data, err := json.Marshal(positions)
	if err != nil {
		return "", fmt.Errorf("encoding positions: %w", err)
	}
	return string(data), nil
}

func decodePositions(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var positions []int
	if err := json.Unmarshal([]byte(raw), &positions); err != nil {
		return nil, fmt.Errorf("decoding positions %q: %w", raw, err)
	}
	return positions, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
