// Package index provides k-nearest-neighbour search over the corpus
// embedding matrix. Two backends exist: an in-process flat index and a
// pgvector-backed index for deployments with a database.
package index

import "context"

// Result is one nearest neighbour. Row identifies the corpus entry; Distance
// is the L2 distance to the query vector.
type Result struct {
	Row      int
	Distance float32
}

// Index searches an embedding matrix for the k rows closest to a query.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Size() int
}
