package index

import (
	"context"
	"fmt"
	"sort"
)

// FlatIndex holds the embedding matrix in memory and scans every row on each
// search. Corpus sizes here are a few hundred rows, so exact scan beats any
// approximate structure.
type FlatIndex struct {
	dimensions int
	rows       [][]float32
}

// NewFlatIndex builds an index over a row-aligned embedding matrix.
func NewFlatIndex(dimensions int, rows [][]float32) (*FlatIndex, error) {
	for i, row := range rows {
		if len(row) != dimensions {
			return nil, fmt.Errorf("embedding row %d has %d dimensions, want %d", i, len(row), dimensions)
		}
	}
	return &FlatIndex{dimensions: dimensions, rows: rows}, nil
}

// Size returns the number of indexed rows.
func (idx *FlatIndex) Size() int {
	return len(idx.rows)
}

// Search returns the k rows with the smallest squared L2 distance to query,
// ordered nearest first. Distances stay squared; the similarity thresholds
// downstream are calibrated against squared distances.
func (idx *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, want %d", len(query), idx.dimensions)
	}
	if k <= 0 || len(idx.rows) == 0 {
		return nil, nil
	}
	if k > len(idx.rows) {
		k = len(idx.rows)
	}

	results := make([]Result, len(idx.rows))
	for i, row := range idx.rows {
		results[i] = Result{Row: i, Distance: squaredL2(query, row)}
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Distance == results[b].Distance {
			return results[a].Row < results[b].Row
		}
		return results[a].Distance < results[b].Distance
	})

	return results[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
