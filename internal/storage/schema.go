package storage

const Schema = `
-- Documents: one row per crawled page, deduplicated by the hash of its URL
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    doc_hash TEXT UNIQUE NOT NULL,
    text_length INTEGER NOT NULL DEFAULT 0,
    term_count INTEGER NOT NULL DEFAULT 0,   -- distinct normalized terms
    indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Terms dictionary: stores unique normalized terms from all documents
CREATE TABLE IF NOT EXISTS terms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    term TEXT UNIQUE NOT NULL,
    document_frequency INTEGER NOT NULL DEFAULT 0,
    total_occurrences INTEGER NOT NULL DEFAULT 0
);

-- Postings list: inverted index mapping terms to documents
CREATE TABLE IF NOT EXISTS postings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    term_id INTEGER NOT NULL REFERENCES terms(id),
    doc_id INTEGER NOT NULL REFERENCES documents(id),
    term_frequency INTEGER NOT NULL,
    tf_idf_score REAL,                       -- NULL until the statistics pass runs
    positions TEXT NOT NULL DEFAULT '[]',    -- JSON array of word offsets
    UNIQUE (term_id, doc_id)
);
CREATE INDEX IF NOT EXISTS idx_postings_term ON postings(term_id);
CREATE INDEX IF NOT EXISTS idx_postings_doc ON postings(doc_id);
CREATE INDEX IF NOT EXISTS idx_postings_tfidf ON postings(tf_idf_score);

-- Index metadata: global statistics written by the statistics pass
CREATE TABLE IF NOT EXISTS index_metadata (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT UNIQUE NOT NULL,
    value TEXT,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const (
	MetaTotalDocs       = "total_docs"
	MetaLastCalculation = "last_tfidf_calculation"
)

// requiredTables must all exist for a file to count as an index.
var requiredTables = []string{"documents", "terms", "postings", "index_metadata"}
