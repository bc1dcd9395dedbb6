package service

import (
	"log"
	"math/rand"
	"regexp"
	"strings"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/policy"
)

// Validator runs generated text through a fixed sequence of cleanup stages:
// instruction-echo removal, unsafe-content screening, factual corrections,
// duplicate and contradiction removal, tone fixes, and length enforcement.
// Stages run in order; each consumes the previous stage's output.
type Validator struct {
	pol *policy.Policy
	rng *rand.Rand
}

// NewValidator builds a validator. rng drives closing selection and is
// injectable so tests can pin it.
func NewValidator(pol *policy.Policy, rng *rand.Rand) *Validator {
	return &Validator{pol: pol, rng: rng}
}

// Clean validates and rewrites a generated response against the user's
// input. The result is always safe to return: unsafe or fully rejected text
// becomes a canned fallback.
func (v *Validator) Clean(response, userInput string) string {
	tables := v.pol.Validator

	if response == "" {
		return v.pol.CannedResponse("clarify", domain.LanguageEnglish)
	}

	response, ok := v.stripInstructionEchoes(response, tables.InstructionEchoes)
	if !ok {
		return v.pol.CannedResponse("clarify", domain.LanguageEnglish)
	}

	if pattern, unsafe := tables.UnsafeMatch(strings.ToLower(response)); unsafe {
		log.Printf("unsafe medical advice detected: %s", pattern)
		return v.pol.CannedResponse("safe_fallback", domain.LanguageEnglish)
	}

	for i := range tables.TamponFixes {
		response = tables.TamponFixes[i].Apply(response)
	}

	response = v.removeDuplicateSentences(response)

	for i := range tables.Contradictions {
		pair := &tables.Contradictions[i]
		if pair.BothMatch(response) {
			response = pair.StripWrong(response)
		}
	}

	for _, fix := range tables.TypoFixes {
		response = strings.ReplaceAll(response, fix.From, fix.To)
	}

	for _, closing := range tables.GenericClosings {
		if strings.HasSuffix(response, closing) {
			response = strings.TrimSpace(strings.TrimSuffix(response, closing))
			break
		}
	}

	if countSentences(response) < 4 && len(tables.VariedClosings) > 0 {
		closing := tables.VariedClosings[v.rng.Intn(len(tables.VariedClosings))]
		if !strings.HasSuffix(response, ".") && !strings.HasSuffix(response, "!") && !strings.HasSuffix(response, "?") {
			response += "."
		}
		response += " " + closing
	}

	for _, phrase := range tables.ColdPhrases {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(phrase))
		response = re.ReplaceAllString(response, "I understand")
	}

	response = v.removeOffTopicSentences(response, userInput)
	response = v.removeSexMentions(response, userInput)

	response = strings.TrimSpace(response)
	if response != "" && !strings.HasSuffix(response, ".") && !strings.HasSuffix(response, "!") && !strings.HasSuffix(response, "?") {
		response += "."
	}
	return response
}

// stripInstructionEchoes drops sentences that echo prompt instructions. The
// second return value is false when nothing survives.
func (v *Validator) stripInstructionEchoes(response string, echoes []string) (string, bool) {
	var kept []string
	for _, sent := range strings.Split(response, ".") {
		if containsAnyPhrase(strings.ToLower(sent), echoes) {
			continue
		}
		kept = append(kept, sent)
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Join(kept, ". ")), true
}

// removeDuplicateSentences drops exact, near-duplicate (>70% word overlap),
// and subset sentences, then squashes consecutive repeats.
func (v *Validator) removeDuplicateSentences(response string) string {
	var unique []string
	var seenSets []map[string]struct{}
	seenExact := make(map[string]struct{})

	for _, sent := range strings.Split(response, ".") {
		sent = strings.TrimSpace(sent)
		if len(sent) < 10 {
			continue
		}

		normalized := normalizeSentence(sent)
		if _, dup := seenExact[normalized]; dup {
			continue
		}

		words := wordSet(normalized)
		isDuplicate := false
		for i, seenWords := range seenSets {
			seenNormalized := normalizeSentence(unique[i])
			if len(normalized) > 20 && len(seenNormalized) > 20 {
				if overlapRatio(words, seenWords) > 0.7 {
					isDuplicate = true
					break
				}
				if isSubset(words, seenWords) || isSubset(seenWords, words) {
					isDuplicate = true
					break
				}
			}
		}
		if isDuplicate {
			continue
		}

		unique = append(unique, sent)
		seenSets = append(seenSets, words)
		seenExact[normalized] = struct{}{}
	}

	var final []string
	prev := ""
	for _, sent := range unique {
		normalized := normalizeSentence(sent)
		if normalized == prev {
			continue
		}
		final = append(final, sent)
		prev = normalized
	}

	return strings.TrimSpace(strings.Join(final, ". "))
}

// removeOffTopicSentences strips sentences dominated by menarche content
// when the user never asked about it.
func (v *Validator) removeOffTopicSentences(response, userInput string) string {
	tables := v.pol.Validator
	inputLower := strings.ToLower(userInput)
	if containsAnyPhrase(inputLower, tables.MenarcheQueryTerms) {
		return response
	}

	var kept []string
	for _, sent := range strings.Split(response, ".") {
		sentLower := strings.ToLower(sent)
		if containsAnyPhrase(sentLower, tables.MenarcheMarkers) {
			hits := 0
			for _, term := range tables.MenarcheKeywords {
				if strings.Contains(sentLower, term) {
					hits++
				}
			}
			totalWords := countWords(sent)
			if totalWords < 1 {
				totalWords = 1
			}
			if hits > 0 && float64(hits)/float64(totalWords) > 0.3 {
				continue
			}
		}
		kept = append(kept, sent)
	}
	if len(kept) == 0 {
		return response
	}
	return strings.TrimSpace(strings.Join(kept, ". "))
}

// removeSexMentions strips sex references unless the user's question makes
// them relevant. Swimming advice survives because "sex" shows up in corpus
// sentences about activity during periods.
func (v *Validator) removeSexMentions(response, userInput string) string {
	if !strings.Contains(strings.ToLower(response), "sex") {
		return response
	}
	if containsAnyPhrase(strings.ToLower(userInput), v.pol.Validator.SexContexts) {
		return response
	}

	var kept []string
	for _, sent := range strings.Split(response, ".") {
		sentLower := strings.ToLower(sent)
		if strings.Contains(sentLower, "sex") && !strings.Contains(sentLower, "swim") {
			continue
		}
		kept = append(kept, sent)
	}
	if len(kept) == 0 {
		return response
	}
	return strings.TrimSpace(strings.Join(kept, ". "))
}
