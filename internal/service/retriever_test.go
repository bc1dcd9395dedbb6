package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/index"
	"github.com/eunoia-health/eunoia/internal/policy"
	"github.com/eunoia-health/eunoia/internal/translate"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

func retrievalTables(t *testing.T) policy.Retrieval {
	t.Helper()
	return policy.MustLoad().Retrieval
}

func buildRetriever(t *testing.T, embedder *fakeEmbedder, rows [][]float32, corpus []domain.CorpusEntry) *Retriever {
	t.Helper()
	idx, err := index.NewFlatIndex(2, rows)
	require.NoError(t, err)
	translator := translate.NewTranslator(nil, policy.MustLoad().Translation)
	return NewRetriever(embedder, idx, corpus, nil, nil, translator, retrievalTables(t))
}

func TestRetriever_AcceptsNearNeighbours(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	corpus := []domain.CorpusEntry{
		{Question: "Why do cramps hurt?", Answer: "Cramps come from the uterus contracting during menstruation."},
		{Question: "Unrelated", Answer: "Totally different topic about nutrition and vitamins."},
	}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}, {30, 40}}, corpus)

	result := r.Retrieve(context.Background(), "why do cramps hurt", 5, 0.5, domain.LanguageEnglish)
	assert.Contains(t, result, "uterus contracting")
	assert.NotContains(t, result, "nutrition")
}

func TestRetriever_WordOverlapAdmitsDistantRows(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	corpus := []domain.CorpusEntry{
		{Question: "q", Answer: "Period cramps hurt because the uterus contracts to shed its lining."},
	}
	// Squared distance 2500 puts similarity far below the threshold; the
	// lexical overlap with the query carries the row in.
	r := buildRetriever(t, embedder, [][]float32{{30, 40}}, corpus)

	result := r.Retrieve(context.Background(), "why do period cramps hurt", 5, 0.5, domain.LanguageEnglish)
	assert.Contains(t, result, "uterus contracts")
}

func TestRetriever_DeduplicatesAnswers(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	answer := "Warm compresses ease cramps for most people."
	corpus := []domain.CorpusEntry{
		{Question: "a", Answer: answer},
		{Question: "b", Answer: answer},
	}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}, {0, 0}}, corpus)

	result := r.Retrieve(context.Background(), "cramps", 5, 0.5, domain.LanguageEnglish)
	assert.Equal(t, "Warm compresses ease cramps for most people", result)
}

func TestRetriever_FiltersMenarcheUnlessAsked(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	corpus := []domain.CorpusEntry{
		{Question: "a", Answer: "Menarche typically happens during puberty for most people."},
		{Question: "b", Answer: "Heavy flow is common in the first days of a cycle."},
	}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}, {0, 0}}, corpus)

	result := r.Retrieve(context.Background(), "tell me about heavy flow", 5, 0.5, domain.LanguageEnglish)
	assert.NotContains(t, result, "Menarche")
	assert.Contains(t, result, "Heavy flow")

	result = r.Retrieve(context.Background(), "when does the first period start", 5, 0.5, domain.LanguageEnglish)
	assert.Contains(t, result, "Menarche")
}

func TestRetriever_FiltersRegionPhrases(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	corpus := []domain.CorpusEntry{
		{Question: "a", Answer: "In rural india the ashas distribute free sanitary pads."},
		{Question: "b", Answer: "Change your pad every four to six hours for comfort."},
	}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}, {0, 0}}, corpus)

	result := r.Retrieve(context.Background(), "how often should I change my pad", 5, 0.5, domain.LanguageEnglish)
	assert.NotContains(t, result, "ashas")
	assert.Contains(t, result, "four to six hours")
}

func TestRetriever_EmbedderFailureReturnsEmpty(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("model offline")}
	corpus := []domain.CorpusEntry{{Question: "a", Answer: "Some answer text here."}}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}}, corpus)

	assert.Empty(t, r.Retrieve(context.Background(), "cramps", 5, 0.5, domain.LanguageEnglish))
}

func TestRetriever_NoSwahiliCorpusWithoutEntries(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}}, []domain.CorpusEntry{{Question: "a", Answer: "x"}})
	assert.False(t, r.HasSwahiliCorpus())
}

func TestRetriever_SwahiliQuerySearchesEnglishCorpus(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 0}}
	corpus := []domain.CorpusEntry{
		{Question: "a", Answer: "Period pain comes from the uterus contracting and usually eases with heat."},
	}
	r := buildRetriever(t, embedder, [][]float32{{0, 0}}, corpus)

	// The direct-mapping table turns the Swahili query into English, so the
	// English corpus is searched without a translation model.
	result := r.Retrieve(context.Background(), "ninasaidia aje maumivu ya hedhi", 5, 0.5, domain.LanguageSwahili)
	assert.Contains(t, result, "uterus contracting")
}
