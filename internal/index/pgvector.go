package index

import "context"

// NearestSearcher is the persistence-side half of a pgvector index.
type NearestSearcher interface {
	Nearest(ctx context.Context, language string, query []float32, k int) ([]Result, error)
}

// PGVectorIndex serves k-NN queries from a corpus_embeddings table. One
// instance covers one corpus language.
type PGVectorIndex struct {
	searcher NearestSearcher
	language string
	size     int
}

// NewPGVectorIndex wraps a searcher for one language. size is the known row
// count, captured at startup after seeding.
func NewPGVectorIndex(searcher NearestSearcher, language string, size int) *PGVectorIndex {
	return &PGVectorIndex{searcher: searcher, language: language, size: size}
}

func (idx *PGVectorIndex) Size() int {
	return idx.size
}

// Search returns the k nearest rows. The `<->` operator yields plain L2, so
// distances are squared here to line up with the flat backend and the
// similarity thresholds calibrated against squared distances.
func (idx *PGVectorIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	results, err := idx.searcher.Nearest(ctx, idx.language, query, k)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Distance *= results[i].Distance
	}
	return results, nil
}
