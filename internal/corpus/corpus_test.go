package corpus

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunoia-health/eunoia/internal/domain"
)

func TestReadCSV(t *testing.T) {
	input := "question,answer\n" +
		"What is PCOS?,PCOS is a hormonal disorder.\n" +
		"How long does a period last?,Usually 3 to 7 days.\n"

	entries, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "What is PCOS?", entries[0].Question)
	assert.Equal(t, "PCOS is a hormonal disorder.", entries[0].Answer)
	assert.Equal(t, "Usually 3 to 7 days.", entries[1].Answer)
}

func TestReadCSV_SwahiliColumns(t *testing.T) {
	input := "question_sw,answer_sw\n" +
		"PCOS ni nini?,PCOS ni ugonjwa wa homoni.\n"

	entries, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PCOS ni nini?", entries[0].Question)
}

func TestReadCSV_KeepsEmptyAnswers(t *testing.T) {
	input := "question,answer\n" +
		"First question,First answer\n" +
		"Second question,\n" +
		"Third question,Third answer\n"

	entries, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Second question", entries[1].Question)
	assert.Empty(t, entries[1].Answer)
	assert.Equal(t, "Third answer", entries[2].Answer)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("foo,bar\na,b\n"))
	assert.Error(t, err)
}

func TestEmbeddingArtifact_Validate(t *testing.T) {
	artifact := &EmbeddingArtifact{
		Dimensions: domain.EmbeddingDimensions,
		Rows:       [][]float32{make([]float32, domain.EmbeddingDimensions)},
	}
	assert.NoError(t, artifact.Validate())

	artifact.Rows = append(artifact.Rows, make([]float32, 10))
	assert.Error(t, artifact.Validate())

	artifact.Dimensions = 10
	assert.Error(t, artifact.Validate())
}

func TestSaveAndLoadEmbeddings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "embeddings.json")

	row := make([]float32, domain.EmbeddingDimensions)
	row[0] = 0.25
	row[383] = -1.5
	artifact := &EmbeddingArtifact{
		Dimensions: domain.EmbeddingDimensions,
		Rows:       [][]float32{row},
	}

	require.NoError(t, SaveEmbeddings(path, artifact))

	loaded, err := LoadEmbeddings(path)
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 1)
	assert.Equal(t, float32(0.25), loaded.Rows[0][0])
	assert.Equal(t, float32(-1.5), loaded.Rows[0][383])
}

func TestLoadEmbeddings_Missing(t *testing.T) {
	_, err := LoadEmbeddings(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
