// Package translate handles English/Swahili translation around the chat
// pipeline. Translation is fail-open everywhere: when a model call fails the
// original text passes through unchanged, so a broken translation backend
// degrades quality but never drops a reply.
package translate

import (
	"context"
	"log"
	"strings"

	"github.com/eunoia-health/eunoia/internal/policy"
)

// Engine is the model-backed half of the translator.
type Engine interface {
	TranslateToSwahili(ctx context.Context, text string) (string, error)
	TranslateToEnglish(ctx context.Context, text string) (string, error)
}

// Translator wraps an Engine with the fixed preprocessing and
// post-processing tables. A nil engine disables model calls; table-driven
// rewrites still apply where they fully answer the request.
type Translator struct {
	engine Engine
	tables policy.Translation
}

func NewTranslator(engine Engine, tables policy.Translation) *Translator {
	return &Translator{engine: engine, tables: tables}
}

// ToSwahili translates English text to Swahili and naturalizes the result to
// a casual register.
func (t *Translator) ToSwahili(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if t.engine == nil {
		return text
	}

	translated, err := t.engine.TranslateToSwahili(ctx, text)
	if err != nil {
		log.Printf("translation failed (en_sw), keeping original: %v", err)
		return text
	}
	return t.Naturalize(translated)
}

// ToEnglish translates Swahili text to English. Query preprocessing runs
// first and short-circuits the model entirely when the rewritten query is
// already English.
func (t *Translator) ToEnglish(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	preprocessed := t.PreprocessQuery(text)
	if preprocessed != text && containsAny(strings.ToLower(preprocessed), t.tables.EnglishIndicators) {
		return preprocessed
	}
	if t.engine == nil {
		return text
	}

	input := text
	if preprocessed != text {
		input = preprocessed
	}
	translated, err := t.engine.TranslateToEnglish(ctx, input)
	if err != nil {
		log.Printf("translation failed (sw_en), keeping original: %v", err)
		return text
	}

	for _, edit := range t.tables.PostEdits {
		translated = strings.ReplaceAll(translated, edit.From, edit.To)
	}
	if containsAny(strings.ToLower(text), t.tables.PeriodContextTerms) {
		for _, edit := range t.tables.PeriodContextEdits {
			translated = strings.ReplaceAll(translated, edit.From, edit.To)
		}
	}
	return translated
}

// PreprocessQuery rewrites a Swahili query using the direct-mapping and
// replacement tables. A direct-mapping hit returns its English text outright.
func (t *Translator) PreprocessQuery(query string) string {
	if query == "" {
		return query
	}

	lower := strings.ToLower(strings.TrimSpace(query))
	for _, mapping := range t.tables.DirectMappings {
		if strings.Contains(lower, mapping.From) {
			return mapping.To
		}
	}

	result := lower
	for _, repl := range t.tables.QueryReplacements {
		result = strings.ReplaceAll(result, repl.From, repl.To)
	}

	hasQuestionWord := strings.Contains(result, "how") ||
		strings.Contains(result, "why") ||
		strings.Contains(result, "what")
	if !hasQuestionWord {
		if strings.Contains(result, "pain") || strings.Contains(result, "cramp") || strings.Contains(result, "period") {
			if !strings.Contains(result, "help") {
				result = "how to help with " + result
			} else {
				result = "how " + result
			}
		}
	}

	// Untouched queries go back verbatim so the model sees the original
	// casing.
	if result == lower && len(strings.Fields(result)) == len(strings.Fields(query)) {
		return query
	}
	return result
}

// Naturalize converts formal machine-translated Swahili into casual
// phrasing: ordered substitutions, long-sentence splitting at conjunctions,
// then punctuation and capitalization cleanup.
func (t *Translator) Naturalize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, sub := range t.tables.Naturalize {
		result = strings.ReplaceAll(result, sub.From, sub.To)
	}

	var simplified []string
	for _, sent := range strings.Split(result, ". ") {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		words := strings.Fields(sent)
		switch {
		case len(words) > 25 && strings.Contains(sent, " au "):
			parts := strings.SplitN(sent, " au ", 2)
			simplified = append(simplified, strings.TrimSpace(parts[0])+".")
			simplified = append(simplified, "Au "+strings.TrimSpace(parts[1]))
		case len(words) > 25 && strings.Contains(sent, " na "):
			parts := strings.SplitN(sent, " na ", 2)
			simplified = append(simplified, strings.TrimSpace(parts[0])+".")
			simplified = append(simplified, "Na "+strings.TrimSpace(parts[1]))
		default:
			simplified = append(simplified, sent)
		}
	}
	result = strings.Join(simplified, ". ")

	result = strings.Join(strings.Fields(result), " ")
	result = strings.ReplaceAll(result, "..", ".")
	result = strings.ReplaceAll(result, "  ", " ")
	result = strings.ReplaceAll(result, " .", ".")
	result = strings.ReplaceAll(result, " ,", ",")

	sentences := strings.Split(result, ". ")
	for i, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		sentences[i] = strings.ToUpper(sent[:1]) + sent[1:]
	}
	return strings.TrimSpace(strings.Join(sentences, ". "))
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
