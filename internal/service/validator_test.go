package service

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunoia-health/eunoia/internal/policy"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(policy.MustLoad(), rand.New(rand.NewSource(1)))
}

func hasAnyClosing(t *testing.T, response string) bool {
	t.Helper()
	for _, closing := range policy.MustLoad().Validator.VariedClosings {
		if strings.Contains(response, closing) {
			return true
		}
	}
	return false
}

func TestValidator_Idempotent(t *testing.T) {
	v := newTestValidator(t)
	question := "why do period cramps hurt"

	once := v.Clean(goodAnswer, question)
	assert.Equal(t, once, v.Clean(once, question), "cleaning already-clean text must change nothing")
}

func TestValidator_EmptyResponseBecomesClarify(t *testing.T) {
	v := newTestValidator(t)
	result := v.Clean("", "why do cramps hurt")
	assert.Contains(t, result, "Could you tell me more")
}

func TestValidator_FullyEchoedResponseBecomesClarify(t *testing.T) {
	v := newTestValidator(t)
	result := v.Clean("Follow this exactly. Critical rules apply here", "why do cramps hurt")
	assert.Contains(t, result, "Could you tell me more")
}

func TestValidator_UnsafeAdviceBecomesSafeFallback(t *testing.T) {
	v := newTestValidator(t)

	result := v.Clean("Sex will help cure your cramps quickly.", "how do I stop cramps")
	assert.Contains(t, result, "accurate and safe information")

	result = v.Clean("You must not go to school during your period.", "can I go to school")
	assert.Contains(t, result, "accurate and safe information")
}

func TestValidator_CorrectsPadTSSClaim(t *testing.T) {
	v := newTestValidator(t)

	result := v.Clean("Pads may cause toxic shock syndrome.", "are pads safe")
	assert.Contains(t, result, "Pads do not cause TSS")
	assert.Contains(t, result, "tampons left in for more than 8 hours")
}

func TestValidator_RemovesDuplicateSentences(t *testing.T) {
	v := newTestValidator(t)

	response := "Heat helps with cramps and eases the pain quickly. " +
		"Heat helps with cramps and eases the pain quickly. " +
		"Drink plenty of water throughout your period days."
	result := v.Clean(response, "how do I ease cramps")
	assert.Equal(t, 1, strings.Count(result, "Heat helps with cramps"))
	assert.Contains(t, result, "Drink plenty of water")
}

func TestValidator_RemovesNearDuplicateSentences(t *testing.T) {
	v := newTestValidator(t)

	response := "A warm compress on the belly eases period cramps fast. " +
		"A warm compress on the belly eases the period cramps very fast. " +
		"Gentle stretching can also reduce the discomfort a lot."
	result := v.Clean(response, "how do I ease cramps")
	assert.Equal(t, 1, strings.Count(result, "warm compress"))
}

func TestValidator_FixesTypos(t *testing.T) {
	v := newTestValidator(t)

	result := v.Clean("Polycrystic ovary syndrome affects hormone levels in the body. "+
		"It can make cycles irregular over time. Many people manage it well with support.", "what is pcos")
	assert.Contains(t, result, "Polycystic")
	assert.NotContains(t, result, "Polycrystic")
}

func TestValidator_StripsGenericClosing(t *testing.T) {
	v := newTestValidator(t)

	response := "Cramps come from the uterus contracting during your period. " +
		"A heating pad can relax those muscles and dull the ache. " +
		"Light exercise like walking also improves blood flow. " +
		"Remember, you're not alone in this, and it's okay to ask questions."
	result := v.Clean(response, "why do cramps hurt")
	assert.NotContains(t, result, "not alone in this")
}

func TestValidator_AppendsClosingToShortResponses(t *testing.T) {
	v := newTestValidator(t)

	response := "Cramps come from the uterus contracting during your period. " +
		"A heating pad can relax those muscles and dull the ache."
	result := v.Clean(response, "why do cramps hurt")
	assert.True(t, hasAnyClosing(t, result), "expected a varied closing in %q", result)
}

func TestValidator_SoftensColdPhrases(t *testing.T) {
	v := newTestValidator(t)

	response := "According to the data, cramps affect most people who menstruate. " +
		"A warm bath can bring relief within the hour. " +
		"Over-the-counter pain relievers are another safe option."
	result := v.Clean(response, "why do cramps hurt")
	assert.Contains(t, result, "I understand")
	assert.NotContains(t, strings.ToLower(result), "according to the data")
}

func TestValidator_RemovesOffTopicMenarcheSentences(t *testing.T) {
	v := newTestValidator(t)

	response := "PCOS is a hormonal condition that can make cycles irregular. " +
		"Menarche first period puberty happens early. " +
		"A doctor can confirm PCOS with a few simple tests."
	result := v.Clean(response, "what is PCOS")
	assert.NotContains(t, result, "Menarche")
	assert.Contains(t, result, "hormonal condition")
}

func TestValidator_KeepsMenarcheContentWhenAsked(t *testing.T) {
	v := newTestValidator(t)

	response := "Menarche is the name for a first menstrual period. " +
		"It typically occurs between the ages of 10 and 16. " +
		"Every body follows its own timeline, and that is normal."
	result := v.Clean(response, "when does menarche usually start")
	assert.Contains(t, result, "Menarche")
}

func TestValidator_RemovesSexMentionsWhenUnasked(t *testing.T) {
	v := newTestValidator(t)

	response := "Avoid sex during very heavy flow days if it feels uncomfortable. " +
		"Warm baths help with cramps and overall relaxation. " +
		"Gentle movement keeps the blood flowing and eases tension."
	result := v.Clean(response, "how do I manage cramps")
	assert.NotContains(t, strings.ToLower(result), "sex")
}

func TestValidator_KeepsSexMentionsInContext(t *testing.T) {
	v := newTestValidator(t)

	response := "Talking openly with your partner about sex during your period is healthy. " +
		"Comfort and consent matter most on any day of the cycle. " +
		"A towel and a relaxed pace make things easier for both of you."
	result := v.Clean(response, "is sex during my period okay with my partner")
	assert.Contains(t, strings.ToLower(result), "sex")
}

func TestValidator_EndsWithPunctuation(t *testing.T) {
	v := newTestValidator(t)

	result := v.Clean("Cramps are common and usually harmless for most people. "+
		"A heating pad brings quick relief to sore muscles. "+
		"Water and rest round out the basics nicely", "why do cramps hurt")
	require.NotEmpty(t, result)
	last := result[len(result)-1]
	assert.Contains(t, ".!?", string(last))
}
