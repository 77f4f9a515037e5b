package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
	"github.com/deidaraiorek/gogol/internal/storage"
)

var drivers = []string{storage.DriverCGO, storage.DriverPureGo}

func openTestDB(t *testing.T, driver string) *storage.IndexDB {
	t.Helper()
	db, err := storage.Open(storage.Options{
		Driver: driver,
		Path:   filepath.Join(t.TempDir(), "index.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create index DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func saveDoc(t *testing.T, db *storage.IndexDB, url string, terms map[string]storage.TermStats) int64 {
	t.Helper()
	ctx := context.Background()
	var docID int64
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		docID, err = db.SaveDocumentInTransaction(ctx, tx, &storage.Document{
			URL:     url,
			Title:   url,
			DocHash: "hash-" + url,
		}, terms)
		return err
	})
	if err != nil {
		t.Fatalf("Failed to save %s: %v", url, err)
	}
	return docID
}

func TestOpenCreatesEmptyIndex(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			db := openTestDB(t, driver)

			stats, err := db.Stats(context.Background())
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.Documents != 0 || stats.Terms != 0 || stats.Postings != 0 {
				t.Errorf("Expected empty index, got %+v", stats)
			}
		})
	}
}

func TestOpenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := storage.OpenExisting(storage.Options{Driver: storage.DriverCGO, Path: path})
	if !errors.Is(err, apperrors.ErrStoreNotFound) {
		t.Fatalf("OpenExisting() on missing file error = %v, want ErrStoreNotFound", err)
	}

	db, err := storage.Open(storage.Options{Driver: storage.DriverCGO, Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.Close()

	db, err = storage.OpenExisting(storage.Options{Driver: storage.DriverCGO, Path: path})
	if err != nil {
		t.Fatalf("OpenExisting() after Open error = %v", err)
	}
	db.Close()
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := storage.Open(storage.Options{Driver: "postgres", Path: filepath.Join(t.TempDir(), "x.db")})
	if !errors.Is(err, apperrors.ErrUnsupportedOption) {
		t.Errorf("Open() error = %v, want ErrUnsupportedOption", err)
	}
}

func TestSaveDocument(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db := openTestDB(t, driver)

			docID := saveDoc(t, db, "https://a.example", map[string]storage.TermStats{
				"python":   {Frequency: 2, Positions: []int{0, 1}},
				"tutorial": {Frequency: 1, Positions: []int{2}},
			})

			indexed, err := db.IsDocumentIndexed(ctx, nil, "hash-https://a.example")
			if err != nil {
				t.Fatalf("IsDocumentIndexed() error = %v", err)
			}
			if !indexed {
				t.Error("Expected document to be indexed")
			}

			doc, err := db.Document(ctx, docID)
			if err != nil {
				t.Fatalf("Document() error = %v", err)
			}
			if doc.TermCount != 2 {
				t.Errorf("TermCount = %d, want 2", doc.TermCount)
			}
			if doc.IndexedAt.IsZero() {
				t.Error("Expected IndexedAt to be set")
			}

			term, err := db.Term(ctx, "python")
			if err != nil || term == nil {
				t.Fatalf("Term(python) = %v, %v", term, err)
			}
			if term.DocumentFrequency != 1 || term.TotalOccurrences != 2 {
				t.Errorf("python stats = %+v, want df=1 total=2", term)
			}

			postings, err := db.PostingsForTerm(ctx, term.ID)
			if err != nil {
				t.Fatalf("PostingsForTerm() error = %v", err)
			}
			if len(postings) != 1 {
				t.Fatalf("Expected 1 posting, got %d", len(postings))
			}
			if postings[0].Scored {
				t.Error("Expected new posting to be unscored")
			}
			if !reflect.DeepEqual(postings[0].Positions, []int{0, 1}) {
				t.Errorf("Positions = %v, want [0 1]", postings[0].Positions)
			}
		})
	}
}

func TestSaveDocumentAccumulatesTermStatistics(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, storage.DriverCGO)

	saveDoc(t, db, "a", map[string]storage.TermStats{"tutorial": {Frequency: 1, Positions: []int{2}}})
	saveDoc(t, db, "b", map[string]storage.TermStats{"tutorial": {Frequency: 3, Positions: []int{0, 4, 9}}})

	term, err := db.Term(ctx, "tutorial")
	if err != nil {
		t.Fatalf("Term() error = %v", err)
	}
	if term.DocumentFrequency != 2 || term.TotalOccurrences != 4 {
		t.Errorf("tutorial stats = %+v, want df=2 total=4", term)
	}

	inconsistent, err := db.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("CheckConsistency() error = %v", err)
	}
	if len(inconsistent) != 0 {
		t.Errorf("Expected consistent index, got %+v", inconsistent)
	}
}

func TestTransactionRollback(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db := openTestDB(t, driver)

			saveDoc(t, db, "a", map[string]storage.TermStats{"python": {Frequency: 1}})

			failure := errors.New("analyzer exploded")
			err := db.InTx(ctx, func(tx *sql.Tx) error {
				if _, err := db.SaveDocumentInTransaction(ctx, tx, &storage.Document{
					URL: "b", Title: "b", DocHash: "hash-b",
				}, map[string]storage.TermStats{"python": {Frequency: 5}, "java": {Frequency: 1}}); err != nil {
					return err
				}
				return failure
			})
			if !errors.Is(err, failure) {
				t.Fatalf("InTx() error = %v, want %v", err, failure)
			}

			stats, err := db.Stats(ctx)
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.Documents != 1 || stats.Terms != 1 || stats.Postings != 1 {
				t.Errorf("Expected rollback to leave 1/1/1, got %+v", stats)
			}

			term, _ := db.Term(ctx, "python")
			if term.DocumentFrequency != 1 || term.TotalOccurrences != 1 {
				t.Errorf("python stats after rollback = %+v", term)
			}
			if java, _ := db.Term(ctx, "java"); java != nil {
				t.Errorf("Expected java to be rolled back, got %+v", java)
			}
		})
	}
}

func TestDuplicateHashRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, storage.DriverCGO)

	saveDoc(t, db, "a", map[string]storage.TermStats{"python": {Frequency: 1}})

	err := db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := db.SaveDocumentInTransaction(ctx, tx, &storage.Document{
			URL: "a", Title: "a", DocHash: "hash-a",
		}, map[string]storage.TermStats{"python": {Frequency: 1}})
		return err
	})
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Fatalf("Expected storage error for duplicate hash, got %v", err)
	}

	term, _ := db.Term(ctx, "python")
	if term.DocumentFrequency != 1 {
		t.Errorf("document_frequency = %d, want 1", term.DocumentFrequency)
	}
}

func TestRecalculateTFIDF(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db := openTestDB(t, driver)

			d1 := saveDoc(t, db, "a", map[string]storage.TermStats{
				"python": {Frequency: 2, Positions: []int{0, 1}},
				"tutori": {Frequency: 1, Positions: []int{2}},
			})
			saveDoc(t, db, "b", map[string]storage.TermStats{
				"java":   {Frequency: 1, Positions: []int{0}},
				"tutori": {Frequency: 1, Positions: []int{1}},
			})

			result, err := db.RecalculateTFIDF(ctx)
			if err != nil {
				t.Fatalf("RecalculateTFIDF() error = %v", err)
			}
			if result.TotalDocs != 2 || result.Postings != 4 {
				t.Errorf("RecalculateTFIDF() = %+v, want 2 docs 4 postings", result)
			}

			python, _ := db.Term(ctx, "python")
			postings, err := db.PostingsForTerm(ctx, python.ID)
			if err != nil {
				t.Fatalf("PostingsForTerm() error = %v", err)
			}
			want := (2.0 / 2.0) * math.Log(2.0/1.0)
			if len(postings) != 1 || postings[0].DocID != d1 || !postings[0].Scored {
				t.Fatalf("python postings = %+v", postings)
			}
			if math.Abs(postings[0].TFIDF-want) > 1e-12 {
				t.Errorf("python tf-idf = %v, want %v", postings[0].TFIDF, want)
			}

			shared, _ := db.Term(ctx, "tutori")
			sharedPostings, _ := db.PostingsForTerm(ctx, shared.ID)
			for _, p := range sharedPostings {
				if p.TFIDF != 0 {
					t.Errorf("term in every document should score 0, got %v", p.TFIDF)
				}
			}

			total, ok, err := db.Metadata(ctx, storage.MetaTotalDocs)
			if err != nil || !ok || total != "2" {
				t.Errorf("Metadata(total_docs) = %q, %v, %v", total, ok, err)
			}
			if _, ok, _ := db.Metadata(ctx, storage.MetaLastCalculation); !ok {
				t.Error("Expected last calculation timestamp")
			}
		})
	}
}

func TestRecalculateTFIDFDeterministic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, storage.DriverCGO)

	saveDoc(t, db, "a", map[string]storage.TermStats{"alpha": {Frequency: 3}, "beta": {Frequency: 1}})
	saveDoc(t, db, "b", map[string]storage.TermStats{"beta": {Frequency: 2}, "gamma": {Frequency: 7}})
	saveDoc(t, db, "c", map[string]storage.TermStats{"gamma": {Frequency: 1}})

	if _, err := db.RecalculateTFIDF(ctx); err != nil {
		t.Fatalf("first pass error = %v", err)
	}
	first, err := db.DocumentNorms(ctx)
	if err != nil {
		t.Fatalf("DocumentNorms() error = %v", err)
	}

	if _, err := db.RecalculateTFIDF(ctx); err != nil {
		t.Fatalf("second pass error = %v", err)
	}
	second, err := db.DocumentNorms(ctx)
	if err != nil {
		t.Fatalf("DocumentNorms() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("norms changed between passes: %v vs %v", first, second)
	}
}

func TestRecalculateTFIDFEmptyIndex(t *testing.T) {
	db := openTestDB(t, storage.DriverCGO)

	_, err := db.RecalculateTFIDF(context.Background())
	if !errors.Is(err, apperrors.ErrEmptyIndex) {
		t.Errorf("RecalculateTFIDF() on empty index error = %v, want ErrEmptyIndex", err)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, storage.DriverPureGo)

	saveDoc(t, db, "a", map[string]storage.TermStats{"python": {Frequency: 1}})
	if err := db.SetMetadata(ctx, storage.MetaTotalDocs, "1"); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 0 || stats.Terms != 0 || stats.Postings != 0 {
		t.Errorf("Expected empty index after reset, got %+v", stats)
	}
	if _, ok, _ := db.Metadata(ctx, storage.MetaTotalDocs); ok {
		t.Error("Expected metadata to be cleared")
	}
}

func TestSetMetadataUpserts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, storage.DriverCGO)

	for _, value := range []string{"1", "2"} {
		if err := db.SetMetadata(ctx, "k", value); err != nil {
			t.Fatalf("SetMetadata(%q) error = %v", value, err)
		}
	}
	value, ok, err := db.Metadata(ctx, "k")
	if err != nil || !ok || value != "2" {
		t.Errorf("Metadata(k) = %q, %v, %v; want 2", value, ok, err)
	}
}

func TestDocumentNotFound(t *testing.T) {
	db := openTestDB(t, storage.DriverCGO)

	_, err := db.Document(context.Background(), 42)
	if !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("Document(42) error = %v, want ErrDocumentNotFound", err)
	}
}

func TestTFIDF(t *testing.T) {
	tests := []struct {
		name          string
		tf, termCount int
		df, total     int64
		expected      float64
	}{
		{"rare term", 2, 2, 1, 2, math.Log(2)},
		{"term in every doc", 1, 2, 2, 2, 0},
		{"zero df", 1, 1, 0, 5, 0},
		{"zero term count", 1, 0, 1, 4, math.Log(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.TFIDF(tt.tf, tt.termCount, tt.df, tt.total); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("TFIDF() = %v, want %v", got, tt.expected)
			}
		})
	}
}
