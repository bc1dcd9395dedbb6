package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eunoia-health/eunoia/internal/domain"
)

// EmbeddingArtifact is the on-disk embedding matrix for one corpus. Rows is
// row-aligned with the corpus entries the matrix was built from.
type EmbeddingArtifact struct {
	Dimensions int         `json:"dimensions"`
	Rows       [][]float32 `json:"rows"`
}

// Validate checks that every row has the declared width.
func (a *EmbeddingArtifact) Validate() error {
	if a.Dimensions != domain.EmbeddingDimensions {
		return fmt.Errorf("unexpected embedding dimensions: got %d, want %d", a.Dimensions, domain.EmbeddingDimensions)
	}
	for i, row := range a.Rows {
		if len(row) != a.Dimensions {
			return fmt.Errorf("embedding row %d has %d dimensions, want %d", i, len(row), a.Dimensions)
		}
	}
	return nil
}

// LoadEmbeddings reads and validates an embedding artifact.
func LoadEmbeddings(path string) (*EmbeddingArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings file: %w", err)
	}

	var artifact EmbeddingArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings file %s: %w", path, err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embeddings file %s: %w", path, err)
	}
	return &artifact, nil
}

// SaveEmbeddings writes an embedding artifact atomically: the JSON lands in a
// temp file first, then renames over the target so readers never observe a
// partial matrix.
func SaveEmbeddings(path string, artifact *EmbeddingArtifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal embeddings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write embeddings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace embeddings file: %w", err)
	}
	return nil
}
