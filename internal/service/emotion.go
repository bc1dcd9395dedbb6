package service

import (
	"strings"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/policy"
)

// emotionOrder fixes the precedence between overlapping keyword sets. Pain
// wins over anxiety, anxiety over sadness.
var emotionOrder = []string{domain.EmotionPain, domain.EmotionAnxious, domain.EmotionSad}

// DetectEmotion classifies text into one of the known emotions by keyword
// scan. Keywords cover both English and Swahili.
func DetectEmotion(text string, tables policy.Chat) string {
	lowered := strings.ToLower(text)
	for _, emotion := range emotionOrder {
		for _, keyword := range tables.Emotions[emotion] {
			if strings.Contains(lowered, keyword) {
				return emotion
			}
		}
	}
	return domain.EmotionNeutral
}
