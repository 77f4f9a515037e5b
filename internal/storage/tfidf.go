package storage

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"time"

	apperrors "github.com/deidaraiorek/gogol/internal/errors"
)

// TFIDF is the weight of a term that occurs termFrequency times in a
// document with termCount distinct terms, in a corpus of totalDocs
// documents of which documentFrequency contain the term.
func TFIDF(termFrequency, termCount int, documentFrequency, totalDocs int64) float64 {
	tf := float64(termFrequency) / float64(max(termCount, 1))
	idf := 0.0
	if documentFrequency > 0 {
		idf = math.Log(float64(totalDocs) / float64(documentFrequency))
	}
	return tf * idf
}

// RecalculateTFIDF rescores every posting against the current corpus and
// records total_docs and the time of the pass in index_metadata. The
// update is a single transaction: on failure no posting changes and the
// previous scores remain. It returns ErrEmptyIndex when there are no
// documents to score.
func (idb *IndexDB) RecalculateTFIDF(ctx context.Context) (RecomputeResult, error) {
	totalDocs, err := idb.DocumentCount(ctx)
	if err != nil {
		return RecomputeResult{}, err
	}
	if totalDocs == 0 {
		return RecomputeResult{}, apperrors.ErrEmptyIndex
	}

	rows, err := idb.db.QueryContext(ctx, `
		SELECT p.id, p.term_frequency, d.term_count, t.document_frequency
		FROM postings p
		JOIN documents d ON d.id = p.doc_id
		JOIN terms t ON t.id = p.term_id
		ORDER BY p.id`)
	if err != nil {
		return RecomputeResult{}, apperrors.Storage("querying postings for tf-idf", err)
	}

	type scored struct {
		postingID int64
		score     float64
	}
	var scores []scored

	for rows.Next() {
		var (
			postingID     int64
			termFrequency int
			termCount     int
			docFreq       int64
		)
		if err := rows.Scan(&postingID, &termFrequency, &termCount, &docFreq); err != nil {
			rows.Close()
			return RecomputeResult{}, apperrors.Storage("scanning posting", err)
		}
		scores = append(scores, scored{
			postingID: postingID,
			score:     TFIDF(termFrequency, termCount, docFreq, totalDocs),
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return RecomputeResult{}, apperrors.Storage("iterating postings", err)
	}
	rows.Close()

	err = idb.InTx(ctx, func(tx *sql.Tx) error {
		updateStmt, err := tx.PrepareContext(ctx, "UPDATE postings SET tf_idf_score = ? WHERE id = ?")
		if err != nil {
			return apperrors.Storage("preparing score update", err)
		}
		defer updateStmt.Close()

		for _, s := range scores {
			if _, err := updateStmt.ExecContext(ctx, s.score, s.postingID); err != nil {
				return apperrors.Storage("updating posting "+strconv.FormatInt(s.postingID, 10), err)
			}
		}

		if err := setMetadata(ctx, tx, MetaTotalDocs, strconv.FormatInt(totalDocs, 10)); err != nil {
			return err
		}
		return setMetadata(ctx, tx, MetaLastCalculation, time.Now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return RecomputeResult{}, err
	}

	return RecomputeResult{TotalDocs: totalDocs, Postings: len(scores)}, nil
}
