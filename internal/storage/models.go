package storage

import "time"

type Document struct {
	ID         int64
	URL        string
	Title      string
	DocHash    string
	TextLength int
	TermCount  int
	IndexedAt  time.Time
}

type Term struct {
	ID                int64
	Term              string
	DocumentFrequency int
	TotalOccurrences  int
}

// Posting is one (term, document) edge. Scored is false until the
// statistics pass has written TFIDF.
type Posting struct {
	ID            int64
	TermID        int64
	DocID         int64
	TermFrequency int
	TFIDF         float64
	Scored        bool
	Positions     []int
}

// TermStats is the per-document occurrence data of one term.
type TermStats struct {
	Frequency int
	Positions []int
}

type IndexStats struct {
	Documents int64
	Terms     int64
	Postings  int64
	SizeBytes int64
}

// Inconsistency reports a term whose stored document frequency disagrees
// with its posting count.
type Inconsistency struct {
	TermID            int64
	Term              string
	DocumentFrequency int
	Postings          int
}

// RecomputeResult summarizes one statistics pass.
type RecomputeResult struct {
	TotalDocs int64
	Postings  int
}
