package service

import (
	"context"
	"math/rand"
	"strings"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/policy"
	"github.com/eunoia-health/eunoia/internal/translate"
)

// FallbackComposer assembles a warm, structured reply from retrieved context
// when generation produces nothing usable. The shape is fixed: empathetic
// opening, explanation sentences, actionable tips, supportive closing.
type FallbackComposer struct {
	tables     policy.Fallback
	translator *translate.Translator
	rng        *rand.Rand
}

// NewFallbackComposer builds a composer. rng picks openings and closings and
// is injectable so tests can pin it.
func NewFallbackComposer(tables policy.Fallback, translator *translate.Translator, rng *rand.Rand) *FallbackComposer {
	return &FallbackComposer{tables: tables, translator: translator, rng: rng}
}

// Compose builds a fallback response for the given emotion, translating the
// whole reply to Swahili when the conversation runs in Swahili.
func (c *FallbackComposer) Compose(ctx context.Context, context_, emotion, language string) string {
	opening := c.pick(c.openings(emotion))
	closing := c.pick(c.closings(emotion))

	response := c.assemble(context_, opening, closing)
	if response == "" {
		response = opening + " I want to make sure I give you accurate information. " +
			"Could you tell me a bit more about what specifically you'd like to know? I'm here to support you."
	}

	if language == domain.LanguageSwahili && c.translator != nil {
		response = c.translator.ToSwahili(ctx, response)
	}
	return response
}

func (c *FallbackComposer) assemble(context_, opening, closing string) string {
	if context_ == "" {
		return ""
	}

	var explanations, tips []string
	count := 0
	for _, sent := range strings.Split(context_, ".") {
		sent = strings.TrimSpace(sent)
		if len(sent) <= 20 {
			continue
		}
		if count >= 10 {
			break
		}
		count++

		sentLower := strings.ToLower(sent)
		generic := containsAnyPhrase(sentLower, c.tables.GenericPhrases)
		actionable := containsAnyPhrase(sentLower, c.tables.ActionableMarkers)
		informative := containsAnyPhrase(sentLower, c.tables.InformativeMarkers)

		if generic && !actionable && !informative && len(sent) < 60 {
			continue
		}

		switch {
		case actionable:
			tips = append(tips, sent)
		case informative || len(sent) > 50:
			explanations = append(explanations, sent)
		case len(sent) > 40:
			explanations = append(explanations, sent)
		}
	}

	parts := []string{opening}
	parts = appendUnique(parts, explanations, 2)
	parts = appendUnique(parts, tips, 3)

	if len(parts) < 4 {
		for _, sent := range append(append([]string{}, explanations...), tips...) {
			if len(parts) >= 5 {
				break
			}
			parts = appendUnique(parts, []string{sent}, 1)
		}
	}

	if len(parts) <= 1 {
		return ""
	}

	response := strings.Join(parts, ". ")
	if !strings.HasSuffix(response, ".") {
		response += "."
	}
	response += " " + closing

	if countSentences(response) < 4 {
		for _, sent := range append(append([]string{}, explanations...), tips...) {
			if !containsSentence(parts, sent) {
				response = strings.Replace(response, closing, sent+". "+closing, 1)
				break
			}
		}
	}
	return response
}

func (c *FallbackComposer) openings(emotion string) []string {
	if pool, ok := c.tables.Openings[emotion]; ok && len(pool) > 0 {
		return pool
	}
	return c.tables.Openings[domain.EmotionNeutral]
}

func (c *FallbackComposer) closings(emotion string) []string {
	if pool, ok := c.tables.Closings[emotion]; ok && len(pool) > 0 {
		return pool
	}
	return c.tables.Closings[domain.EmotionNeutral]
}

func (c *FallbackComposer) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[c.rng.Intn(len(pool))]
}

func appendUnique(parts []string, candidates []string, limit int) []string {
	added := 0
	for _, sent := range candidates {
		if added >= limit {
			break
		}
		if sent == "" || containsSentence(parts, sent) {
			continue
		}
		parts = append(parts, sent)
		added++
	}
	return parts
}

func containsSentence(parts []string, sent string) bool {
	for _, p := range parts {
		if p == sent {
			return true
		}
	}
	return false
}
