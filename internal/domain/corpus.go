package domain

// Language codes used throughout the pipeline.
const (
	LanguageEnglish = "en"
	LanguageSwahili = "sw"
)

// Emotion labels detected from user input.
const (
	EmotionPain    = "pain"
	EmotionAnxious = "anxious"
	EmotionSad     = "sad"
	EmotionNeutral = "neutral"
)

// EmbeddingDimensions is the fixed width of corpus and query vectors.
const EmbeddingDimensions = 384

// CorpusEntry is one question/answer pair from the knowledge base.
// Entries are immutable after load; their position in the corpus slice is
// their identity, and embedding row i must correspond to corpus row i.
type CorpusEntry struct {
	Question string
	Answer   string
}
