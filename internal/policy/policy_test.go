package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	p, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, p.Retrieval.MenarcheTerms)
	assert.NotEmpty(t, p.Validator.UnsafePatterns)
	assert.NotEmpty(t, p.Fallback.Openings)
	assert.NotEmpty(t, p.Chat.GreetingsEN)
	assert.NotEmpty(t, p.Translation.DirectMappings)
	assert.NotEmpty(t, p.Canned)
}

func TestCannedResponse(t *testing.T) {
	p := MustLoad()

	assert.NotEmpty(t, p.CannedResponse("greeting", "en"))
	assert.NotEmpty(t, p.CannedResponse("greeting", "sw"))
	assert.Empty(t, p.CannedResponse("unknown-category", "en"))

	// Unknown languages fall back to English.
	assert.Equal(t, p.CannedResponse("greeting", "en"), p.CannedResponse("greeting", "fr"))
}

func TestUnsafeMatch(t *testing.T) {
	p := MustLoad()

	pattern, unsafe := p.Validator.UnsafeMatch("sex will help your cramps")
	assert.True(t, unsafe)
	assert.NotEmpty(t, pattern)

	_, unsafe = p.Validator.UnsafeMatch("a heating pad helps with cramps")
	assert.False(t, unsafe)
}

func TestPatternFixApply(t *testing.T) {
	p := MustLoad()
	require.NotEmpty(t, p.Validator.TamponFixes)

	fixed := p.Validator.TamponFixes[0].Apply("Pads may cause toxic shock syndrome")
	assert.Contains(t, fixed, "Pads do not cause TSS")
}

func TestContradictionPair(t *testing.T) {
	p := MustLoad()
	require.NotEmpty(t, p.Validator.Contradictions)

	pair := &p.Validator.Contradictions[0]
	text := "Pads can cause tss. Pads do not cause tss."
	assert.True(t, pair.BothMatch(text))
	assert.NotContains(t, pair.StripWrong(text), "Pads can cause tss")
}
