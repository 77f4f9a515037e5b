package ranker

import (
	"context"
	"math"
	"sort"

	"github.com/deidaraiorek/gogol/internal/storage"
)

// QueryVector is the weighted sparse vector of a query. Terms holds the
// indexed query terms in sorted order; terms missing from the index are
// not part of the vector.
type QueryVector struct {
	Terms   []string
	Weights map[string]float64
	Norm    float64

	postings map[string][]storage.Posting
}

// Empty reports whether the query can match nothing.
func (q QueryVector) Empty() bool {
	return len(q.Weights) == 0 || q.Norm == 0
}

// BuildQueryVector weights each distinct query term by its share of the
// query times the mean tf-idf score of its postings. Unscored postings
// count toward the mean with a score of zero.
func (r *Ranker) BuildQueryVector(ctx context.Context, queryTerms []string) (QueryVector, error) {
	vector := QueryVector{
		Weights:  make(map[string]float64),
		postings: make(map[string][]storage.Posting),
	}
	if len(queryTerms) == 0 {
		return vector, nil
	}

	counts := make(map[string]int)
	for _, term := range queryTerms {
		counts[term]++
	}
	queryLength := float64(len(queryTerms))

	unique := make([]string, 0, len(counts))
	for term := range counts {
		unique = append(unique, term)
	}
	sort.Strings(unique)

	var sumSquares float64
	for _, term := range unique {
		termID, ok, err := r.termID(ctx, term)
		if err != nil {
			return QueryVector{}, err
		}
		if !ok {
			r.logger.Debug("query term not in index", "term", term)
			continue
		}

		postings, err := r.store.PostingsForTerm(ctx, termID)
		if err != nil {
			return QueryVector{}, err
		}

		weight := 0.0
		if len(postings) > 0 {
			weight = float64(counts[term]) / queryLength * meanScore(postings)
		}

		vector.Terms = append(vector.Terms, term)
		vector.Weights[term] = weight
		vector.postings[term] = postings
		sumSquares += weight * weight
	}
	vector.Norm = math.Sqrt(sumSquares)

	return vector, nil
}

func meanScore(postings []storage.Posting) float64 {
	var sum float64
	for _, p := range postings {
		if p.Scored {
			sum += p.TFIDF
		}
	}
	return sum / float64(len(postings))
}

func (r *Ranker) termID(ctx context.Context, term string) (int64, bool, error) {
	if id, ok := r.terms.get(term); ok {
		return id, true, nil
	}
	id, ok, err := r.store.TermID(ctx, term)
	if err != nil || !ok {
		return 0, false, err
	}
	r.terms.put(term, id)
	return id, true, nil
}
