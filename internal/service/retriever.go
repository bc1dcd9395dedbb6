package service

import (
	"context"
	"log"
	"strings"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/index"
	"github.com/eunoia-health/eunoia/internal/inference"
	"github.com/eunoia-health/eunoia/internal/policy"
	"github.com/eunoia-health/eunoia/internal/translate"
)

// DefaultTopK is the number of accepted context texts per retrieval.
const DefaultTopK = 5

// Retriever embeds a query, searches the corpus index, and filters the
// neighbours down to relevant context. Failures degrade to an empty context
// string; the generator and fallback composer can both work without one.
type Retriever struct {
	embedder   inference.Embedder
	indexEN    index.Index
	indexSW    index.Index
	corpusEN   []domain.CorpusEntry
	corpusSW   []domain.CorpusEntry
	translator *translate.Translator
	tables     policy.Retrieval
}

func NewRetriever(
	embedder inference.Embedder,
	indexEN index.Index,
	corpusEN []domain.CorpusEntry,
	indexSW index.Index,
	corpusSW []domain.CorpusEntry,
	translator *translate.Translator,
	tables policy.Retrieval,
) *Retriever {
	return &Retriever{
		embedder:   embedder,
		indexEN:    indexEN,
		indexSW:    indexSW,
		corpusEN:   corpusEN,
		corpusSW:   corpusSW,
		translator: translator,
		tables:     tables,
	}
}

// HasSwahiliCorpus reports whether a usable Swahili corpus is indexed.
func (r *Retriever) HasSwahiliCorpus() bool {
	if r.indexSW == nil {
		return false
	}
	for _, entry := range r.corpusSW {
		if entry.Answer != "" {
			return true
		}
	}
	return false
}

// Retrieve returns newline-joined context texts for a query. language selects
// the corpus: Swahili queries search the Swahili corpus when one is indexed,
// otherwise the query is translated and the English corpus is searched.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, similarityThreshold float64, language string) string {
	useSwahiliCorpus := language == domain.LanguageSwahili && r.HasSwahiliCorpus()

	corpus := r.corpusEN
	idx := r.indexEN
	if useSwahiliCorpus {
		corpus = r.corpusSW
		idx = r.indexSW
	} else if language == domain.LanguageSwahili && r.translator != nil {
		translated := r.translator.ToEnglish(ctx, query)
		if !strings.EqualFold(strings.TrimSpace(translated), strings.TrimSpace(query)) {
			query = translated
		} else {
			log.Printf("query translation returned same text, searching English corpus with Swahili query")
		}
	}

	if idx == nil || len(corpus) == 0 {
		return ""
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("query embedding failed: %v", err)
		return ""
	}

	results, err := idx.Search(ctx, queryVec, topK*3)
	if err != nil {
		log.Printf("index search failed: %v", err)
		return ""
	}

	queryLower := strings.ToLower(query)
	queryWords := wordSet(queryLower)
	seen := make(map[string]struct{})
	var accepted []string

	for _, res := range results {
		if res.Row < 0 || res.Row >= len(corpus) {
			continue
		}
		text := corpus[res.Row].Answer
		if strings.TrimSpace(text) == "" {
			continue
		}

		similarity := 1.0 / (1.0 + float64(res.Distance))
		textLower := strings.ToLower(text)
		overlap := queryOverlap(queryWords, textLower)

		if similarity < similarityThreshold && overlap <= 0.15 {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}

		offTopic := containsAnyPhrase(textLower, r.tables.MenarcheTerms) &&
			!containsAnyPhrase(queryLower, r.tables.MenarcheQueryAllow)
		if offTopic || containsAnyPhrase(textLower, r.tables.RegionPhrases) {
			continue
		}

		accepted = append(accepted, text)
		seen[text] = struct{}{}
		if len(accepted) >= topK {
			break
		}
	}

	result := strings.Join(accepted, "\n")
	result = r.filterRegionSentences(result)

	if language == domain.LanguageSwahili && !useSwahiliCorpus && result != "" && r.translator != nil {
		result = r.translateContext(ctx, result)
	}

	return result
}

// filterRegionSentences drops individual sentences that reference programs
// outside the deployment region, in either language.
func (r *Retriever) filterRegionSentences(result string) string {
	if result == "" {
		return result
	}

	denylist := append(append([]string{}, r.tables.RegionPhrases...), r.tables.RegionPhrasesSW...)
	var kept []string
	for _, sent := range strings.Split(result, ".") {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		if containsAnyPhrase(strings.ToLower(sent), denylist) {
			continue
		}
		kept = append(kept, sent)
	}
	return strings.Join(kept, ". ")
}

// translateContext converts English context to Swahili sentence by sentence,
// capped at the first 10 sentences to bound model calls.
func (r *Retriever) translateContext(ctx context.Context, result string) string {
	sentences := strings.Split(result, ".")
	if len(sentences) > 10 {
		sentences = sentences[:10]
	}
	var translated []string
	for _, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		translated = append(translated, r.translator.ToSwahili(ctx, sent))
	}
	return strings.Join(translated, ". ")
}

// queryOverlap is the share of query words present in the text, used as the
// lexical half of the admission test.
func queryOverlap(queryWords map[string]struct{}, textLower string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	textWords := wordSet(textLower)
	shared := 0
	for word := range queryWords {
		if _, ok := textWords[word]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(queryWords))
}
