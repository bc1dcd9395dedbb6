package service

import (
	"regexp"
	"strings"
)

var (
	punctRe = regexp.MustCompile(`[^\w\s]`)
	tokenRe = regexp.MustCompile(`\w+(?:[-_]\w+)*|\S`)
)

// splitSentences breaks text on periods and trims the pieces, dropping
// empties.
func splitSentences(text string) []string {
	var sentences []string
	for _, sent := range strings.Split(text, ".") {
		sent = strings.TrimSpace(sent)
		if sent != "" {
			sentences = append(sentences, sent)
		}
	}
	return sentences
}

// countSentences counts non-empty period-separated segments.
func countSentences(text string) int {
	return len(splitSentences(text))
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// normalizeSentence lowercases, collapses whitespace, and strips punctuation
// so near-duplicate comparison sees only the words.
func normalizeSentence(sent string) string {
	collapsed := strings.Join(strings.Fields(strings.ToLower(sent)), " ")
	return punctRe.ReplaceAllString(collapsed, "")
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		set[word] = struct{}{}
	}
	return set
}

func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for word := range a {
		if _, ok := b[word]; ok {
			shared++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}

func isSubset(a, b map[string]struct{}) bool {
	if len(a) == 0 {
		return false
	}
	for word := range a {
		if _, ok := b[word]; !ok {
			return false
		}
	}
	return true
}

// estimateTokens approximates the generation model's token count from a
// word-and-symbol split. Close enough to gate prompt length without loading
// the model's own tokenizer.
func estimateTokens(text string) int {
	return len(tokenRe.FindAllString(text, -1))
}

func containsAnyPhrase(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// SummarizeContext trims context to a word budget, keeping whole leading
// sentences and a partial tail only when at least 20 words of budget remain.
func SummarizeContext(context string, maxWords int) string {
	if context == "" {
		return ""
	}

	sentences := splitSentences(context)
	wordCount := 0
	var selected []string

	for _, sent := range sentences {
		words := strings.Fields(sent)
		if wordCount+len(words) <= maxWords {
			selected = append(selected, sent)
			wordCount += len(words)
			continue
		}
		remaining := maxWords - wordCount
		if remaining > 20 {
			selected = append(selected, strings.Join(words[:remaining], " "))
		}
		break
	}

	return strings.Join(selected, ". ")
}
