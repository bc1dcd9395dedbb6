package service

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/eunoia-health/eunoia/internal/domain"
)

// LanguageDetector distinguishes English from Swahili input. Anything the
// model cannot classify counts as English.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Swahili).
		Build()
	return &LanguageDetector{detector: detector}
}

// Detect returns "sw" or "en" for the given text.
func (d *LanguageDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return domain.LanguageEnglish
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if ok && lang == lingua.Swahili {
		return domain.LanguageSwahili
	}
	return domain.LanguageEnglish
}
