// Package policy holds the fixed phrase and pattern tables that drive
// retrieval filtering, response validation, and translation post-processing.
// The tables are declarative data, embedded at build time and loaded once at
// startup, keyed by language and category.
package policy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
)

//go:embed data/policy.json
var policyJSON []byte

// Substitution is one ordered from→to rewrite. Order matters: longer phrases
// are listed before their substrings.
type Substitution struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PatternFix rewrites text matching a regular expression.
type PatternFix struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`

	re *regexp.Regexp
}

// Apply rewrites all matches in text.
func (f *PatternFix) Apply(text string) string {
	return f.re.ReplaceAllString(text, f.Replacement)
}

// ContradictionPair names two patterns that must not co-occur. When both
// match, sentences matching Wrong are removed.
type ContradictionPair struct {
	Wrong string `json:"wrong"`
	Right string `json:"right"`

	wrongRe *regexp.Regexp
	rightRe *regexp.Regexp
}

// BothMatch reports whether the pair co-occurs in text.
func (p *ContradictionPair) BothMatch(text string) bool {
	return p.wrongRe.MatchString(text) && p.rightRe.MatchString(text)
}

// StripWrong removes the Wrong pattern's matches from text.
func (p *ContradictionPair) StripWrong(text string) string {
	return p.wrongRe.ReplaceAllString(text, "")
}

// Retrieval holds corpus admission and filtering tables.
type Retrieval struct {
	MenarcheTerms      []string `json:"menarche_terms"`
	MenarcheQueryAllow []string `json:"menarche_query_allow"`
	RegionPhrases      []string `json:"region_phrases"`
	RegionPhrasesSW    []string `json:"region_phrases_sw"`
}

// Validator holds the response validation tables.
type Validator struct {
	InstructionEchoes   []string            `json:"instruction_echoes"`
	InstructionEchoesSW []string            `json:"instruction_echoes_sw"`
	UnsafePatterns      []string            `json:"unsafe_patterns"`
	TamponFixes         []PatternFix        `json:"tampon_fixes"`
	Contradictions      []ContradictionPair `json:"contradictions"`
	TypoFixes           []Substitution      `json:"typo_fixes"`
	GenericClosings     []string            `json:"generic_closings"`
	VariedClosings      []string            `json:"varied_closings"`
	ColdPhrases         []string            `json:"cold_phrases"`
	MenarcheMarkers     []string            `json:"menarche_markers"`
	MenarcheKeywords    []string            `json:"menarche_keywords"`
	MenarcheQueryTerms  []string            `json:"menarche_query_terms"`
	SexContexts         []string            `json:"sex_contexts"`

	unsafeRes []*regexp.Regexp
}

// UnsafeMatch returns the first unsafe pattern matching text, if any.
func (v *Validator) UnsafeMatch(text string) (string, bool) {
	for i, re := range v.unsafeRes {
		if re.MatchString(text) {
			return v.UnsafePatterns[i], true
		}
	}
	return "", false
}

// Fallback holds the empathetic composer's sentence pools and markers.
type Fallback struct {
	Openings           map[string][]string `json:"openings"`
	Closings           map[string][]string `json:"closings"`
	GenericPhrases     []string            `json:"generic_phrases"`
	ActionableMarkers  []string            `json:"actionable_markers"`
	InformativeMarkers []string            `json:"informative_markers"`
}

// Chat holds orchestrator keyword sets and quality-gate phrases.
type Chat struct {
	GreetingsEN        []string            `json:"greetings_en"`
	GreetingsSW        []string            `json:"greetings_sw"`
	OffTopicKeywords   []string            `json:"off_topic_keywords"`
	BotIdentityEN      []string            `json:"bot_identity_en"`
	BotIdentitySW      []string            `json:"bot_identity_sw"`
	Emotions           map[string][]string `json:"emotions"`
	GenericPhrases     []string            `json:"generic_phrases"`
	EnglishLeakPhrases []string            `json:"english_leak_phrases"`
}

// Translation holds the query preprocessing and naturalization tables.
type Translation struct {
	DirectMappings     []Substitution `json:"direct_mappings"`
	QueryReplacements  []Substitution `json:"query_replacements"`
	EnglishIndicators  []string       `json:"english_indicators"`
	PostEdits          []Substitution `json:"post_edits"`
	PeriodContextTerms []string       `json:"period_context_terms"`
	PeriodContextEdits []Substitution `json:"period_context_edits"`
	Naturalize         []Substitution `json:"naturalize"`
}

// Policy is the full table set, keyed by category.
type Policy struct {
	Retrieval   Retrieval                    `json:"retrieval"`
	Validator   Validator                    `json:"validator"`
	Fallback    Fallback                     `json:"fallback"`
	Chat        Chat                         `json:"chat"`
	Translation Translation                  `json:"translation"`
	Canned      map[string]map[string]string `json:"canned"`
}

// CannedResponse returns the fixed response for a category and language,
// falling back to English when no localized variant exists.
func (p *Policy) CannedResponse(category, language string) string {
	byLang, ok := p.Canned[category]
	if !ok {
		return ""
	}
	if text, ok := byLang[language]; ok {
		return text
	}
	return byLang["en"]
}

// Load parses and compiles the embedded policy tables.
func Load() (*Policy, error) {
	var p Policy
	if err := json.Unmarshal(policyJSON, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy data: %w", err)
	}

	p.Validator.unsafeRes = make([]*regexp.Regexp, len(p.Validator.UnsafePatterns))
	for i, pattern := range p.Validator.UnsafePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid unsafe pattern %q: %w", pattern, err)
		}
		p.Validator.unsafeRes[i] = re
	}

	for i := range p.Validator.TamponFixes {
		fix := &p.Validator.TamponFixes[i]
		re, err := regexp.Compile("(?i)" + fix.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid tampon fix pattern %q: %w", fix.Pattern, err)
		}
		fix.re = re
	}

	for i := range p.Validator.Contradictions {
		pair := &p.Validator.Contradictions[i]
		wrongRe, err := regexp.Compile("(?i)" + pair.Wrong)
		if err != nil {
			return nil, fmt.Errorf("invalid contradiction pattern %q: %w", pair.Wrong, err)
		}
		rightRe, err := regexp.Compile("(?i)" + pair.Right)
		if err != nil {
			return nil, fmt.Errorf("invalid contradiction pattern %q: %w", pair.Right, err)
		}
		pair.wrongRe = wrongRe
		pair.rightRe = rightRe
	}

	return &p, nil
}

// MustLoad loads the policy tables or panics. The data is embedded, so a
// failure here is a build defect, not a runtime condition.
func MustLoad() *Policy {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}
