package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/policy"
	"github.com/eunoia-health/eunoia/internal/telemetry"
	"github.com/eunoia-health/eunoia/internal/translate"
)

// ConversationStore persists per-user conversations.
type ConversationStore interface {
	ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, userID string) (string, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
	ClearHistory(ctx context.Context, userID string) error
	History(ctx context.Context, userID, conversationID string) ([]domain.Message, error)
	AppendMessage(ctx context.Context, userID, conversationID, role, text string) error
}

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	UserID         string
	ConversationID string
	Message        string
	Language       string
	Name           string
}

// ChatResult is the reply for one turn.
type ChatResult struct {
	Response       string
	Emotion        string
	Language       string
	ConversationID string
}

// ChatService sequences language resolution, retrieval, generation,
// validation, fallback, and persistence for each chat turn.
type ChatService struct {
	detector   *LanguageDetector
	retriever  *Retriever
	generator  *Generator
	validator  *Validator
	fallback   *FallbackComposer
	translator *translate.Translator
	store      ConversationStore
	pol        *policy.Policy
}

func NewChatService(
	detector *LanguageDetector,
	retriever *Retriever,
	generator *Generator,
	validator *Validator,
	fallback *FallbackComposer,
	translator *translate.Translator,
	store ConversationStore,
	pol *policy.Policy,
) *ChatService {
	return &ChatService{
		detector:   detector,
		retriever:  retriever,
		generator:  generator,
		validator:  validator,
		fallback:   fallback,
		translator: translator,
		store:      store,
		pol:        pol,
	}
}

// Chat handles one turn. The returned error is a domain error suitable for
// direct mapping to an HTTP response.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	input := strings.TrimSpace(req.Message)
	if input == "" {
		return nil, domain.ErrEmptyMessage
	}

	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		created, err := s.store.CreateConversation(ctx, userID)
		if err != nil {
			// Persistence trouble never blocks the turn. The store creates
			// the conversation on first append once it recovers.
			log.Printf("conversation create failed, continuing with a local id: %v", err)
			telemetry.CaptureError(ctx, err)
			created = newLocalConversationID()
		}
		conversationID = created
	}

	detected := s.detector.Detect(input)
	language := resolveLanguage(req.Language, detected)

	ctx, span := telemetry.StartSpan(ctx, "chat.turn", telemetry.SpanAttributes{
		UserID:         userID,
		ConversationID: conversationID,
		Language:       language,
		Operation:      "chat",
	})
	defer span.End()

	if canned := s.shortCircuit(input, req.Name, req.Language, detected, language); canned != nil {
		s.persistTurn(ctx, userID, conversationID, input, canned.Response)
		canned.ConversationID = conversationID
		return canned, nil
	}

	s.appendMessage(ctx, userID, conversationID, domain.RoleUser, input)

	rawUnfiltered, queryForGeneration := s.retrieveFor(ctx, input, language)
	rawContext := filterContextForQuery(rawUnfiltered, input)
	summarized := SummarizeContext(rawContext, contextWordBudget)

	rawForFallback := rawContext
	if rawForFallback == "" {
		rawForFallback = rawUnfiltered
	}

	emotion := DetectEmotion(input, s.pol.Chat)
	if language == domain.LanguageSwahili && queryForGeneration != input {
		emotion = DetectEmotion(queryForGeneration, s.pol.Chat)
	}

	history := s.formatHistory(ctx, userID, conversationID)

	response := s.generate(ctx, GenerationRequest{
		Language:   language,
		Emotion:    emotion,
		Context:    summarized,
		RawContext: rawForFallback,
		History:    history,
		Question:   queryForGeneration,
	}, input, summarized, rawForFallback)

	s.appendMessage(ctx, userID, conversationID, domain.RoleAssistant, response)

	return &ChatResult{
		Response:       response,
		Emotion:        emotion,
		Language:       language,
		ConversationID: conversationID,
	}, nil
}

// resolveLanguage applies the preference-wins rule: an explicit Swahili
// preference always answers in Swahili, and an English preference holds even
// when the user types Swahili.
func resolveLanguage(preference, detected string) string {
	switch {
	case preference == domain.LanguageSwahili:
		return domain.LanguageSwahili
	case detected == domain.LanguageSwahili && preference == domain.LanguageEnglish:
		return domain.LanguageEnglish
	case preference != "":
		return preference
	default:
		return detected
	}
}

// shortCircuit handles greetings, off-topic input, bot-identity questions,
// and language-mismatch notices before the pipeline runs. Returns nil when
// the message needs the full pipeline.
func (s *ChatService) shortCircuit(input, name, preference, detected, language string) *ChatResult {
	tables := s.pol.Chat
	lowered := strings.ToLower(input)
	greetings := append(append([]string{}, tables.GreetingsEN...), tables.GreetingsSW...)

	if isGreeting(lowered, greetings) {
		response := s.pol.CannedResponse("greeting", language)
		if language == domain.LanguageEnglish && name != "" {
			response = fmt.Sprintf(s.pol.CannedResponse("greeting_named", language), name)
		}
		return &ChatResult{Response: response, Language: language}
	}

	if containsAnyPhrase(lowered, tables.OffTopicKeywords) {
		return &ChatResult{Response: s.pol.CannedResponse("off_topic", language), Language: language}
	}

	identity := append(append([]string{}, tables.BotIdentityEN...), tables.BotIdentitySW...)
	if containsAnyPhrase(lowered, identity) {
		return &ChatResult{Response: s.pol.CannedResponse("bot_identity", language), Language: language}
	}

	if preference == domain.LanguageEnglish && detected == domain.LanguageSwahili {
		return &ChatResult{
			Response: s.pol.CannedResponse("language_mismatch", domain.LanguageEnglish),
			Language: domain.LanguageEnglish,
		}
	}
	if preference == domain.LanguageSwahili && detected == domain.LanguageEnglish {
		return &ChatResult{
			Response: s.pol.CannedResponse("language_mismatch", domain.LanguageSwahili),
			Language: domain.LanguageSwahili,
		}
	}

	return nil
}

func isGreeting(lowered string, greetings []string) bool {
	words := strings.Fields(lowered)
	if len(words) <= 2 {
		for _, greeting := range greetings {
			if greeting == lowered {
				return true
			}
			for _, word := range words {
				if word == greeting {
					return true
				}
			}
		}
	}
	for _, greeting := range greetings {
		if strings.HasPrefix(lowered, greeting) {
			return true
		}
	}
	return false
}

// retrieveFor runs retrieval in the right corpus for the resolved language
// and returns the raw context plus the query the generator should see.
func (s *ChatService) retrieveFor(ctx context.Context, input, language string) (string, string) {
	if language != domain.LanguageSwahili {
		return s.retriever.Retrieve(ctx, input, DefaultTopK, 0.5, language), input
	}

	if s.translator == nil {
		return s.retriever.Retrieve(ctx, input, DefaultTopK, 0.4, domain.LanguageSwahili), input
	}

	queryEN := s.translator.ToEnglish(ctx, input)
	if strings.EqualFold(strings.TrimSpace(queryEN), strings.TrimSpace(input)) {
		log.Printf("query translation failed, searching Swahili path directly")
		return s.retriever.Retrieve(ctx, input, DefaultTopK, 0.4, domain.LanguageSwahili), input
	}

	queryEN = fixTranslatedQuery(queryEN, input)
	return s.retriever.Retrieve(ctx, queryEN, DefaultTopK, 0.5, domain.LanguageEnglish), queryEN
}

// fixTranslatedQuery corrects recurring machine-translation slips before the
// query hits the corpus.
func fixTranslatedQuery(queryEN, original string) string {
	lower := strings.ToLower(queryEN)
	if strings.Contains(lower, "help to come") || strings.Contains(lower, "help come") {
		queryEN = strings.ReplaceAll(queryEN, "help to come", "how to help with")
		queryEN = strings.ReplaceAll(queryEN, "help come", "how to help with")
		lower = strings.ToLower(queryEN)
	}
	if strings.Contains(lower, "labor pain") &&
		(strings.Contains(strings.ToLower(original), "hedhi") || strings.Contains(lower, "period")) {
		queryEN = strings.ReplaceAll(queryEN, "labor pains", "period pain")
		queryEN = strings.ReplaceAll(queryEN, "labor pain", "period pain")
	}
	return queryEN
}

// filterContextForQuery removes context sentences that are off-topic for the
// specific condition the user asked about.
func filterContextForQuery(rawContext, input string) string {
	if rawContext == "" {
		return rawContext
	}

	queryLower := strings.ToLower(input)
	var irrelevant []string
	switch {
	case strings.Contains(queryLower, "pcos") || strings.Contains(queryLower, "polycystic"):
		irrelevant = []string{"menarche", "first period", "puberty", "ages of 10 and 16"}
	case strings.Contains(queryLower, "endometriosis"):
		irrelevant = []string{"menarche", "first period", "puberty", "ages of 10 and 16"}
	case strings.Contains(queryLower, "swim"):
		irrelevant = []string{"menarche", "first period"}
	}
	if len(irrelevant) == 0 {
		return rawContext
	}

	var kept []string
	for _, sent := range strings.Split(rawContext, ".") {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		if containsAnyPhrase(strings.ToLower(sent), irrelevant) {
			continue
		}
		kept = append(kept, sent)
	}
	return strings.Join(kept, ". ")
}

// generate produces the final response text: model generation, quality
// gates, validation, and the empathetic fallback when anything fails.
func (s *ChatService) generate(ctx context.Context, req GenerationRequest, input, summarized, rawForFallback string) string {
	fallbackContext := summarized
	if fallbackContext == "" || countWords(fallbackContext) < 20 {
		fallbackContext = rawForFallback
	}

	response, err := s.generator.Answer(ctx, req)
	if err != nil {
		log.Printf("generation error, using empathetic fallback: %v", err)
		telemetry.CaptureError(ctx, err)
		return s.fallback.Compose(ctx, fallbackContext, req.Emotion, req.Language)
	}

	if req.Language == domain.LanguageSwahili {
		response = s.translator.ToSwahili(ctx, response)
	}

	if s.isEchoingInstructions(response, req.Language) {
		log.Printf("response echoes instructions or copied context, using empathetic fallback")
		return s.fallback.Compose(ctx, fallbackContext, req.Emotion, req.Language)
	}

	if s.failsQualityGate(response, req.Language) {
		log.Printf("response too generic or short, using empathetic fallback")
		return s.fallback.Compose(ctx, fallbackContext, req.Emotion, req.Language)
	}

	response = s.validator.Clean(response, input)

	if tooShort(response, req.Language) {
		log.Printf("response still too short after validation, using empathetic fallback")
		return s.fallback.Compose(ctx, fallbackContext, req.Emotion, req.Language)
	}
	return response
}

func (s *ChatService) isEchoingInstructions(response, language string) bool {
	tables := s.pol.Validator
	lowered := strings.ToLower(response)

	echoes := tables.InstructionEchoes
	if language == domain.LanguageSwahili {
		echoes = tables.InstructionEchoesSW
	}
	if containsAnyPhrase(lowered, echoes) {
		return true
	}
	if language == domain.LanguageSwahili && containsAnyPhrase(lowered, s.pol.Chat.EnglishLeakPhrases) {
		return true
	}
	return false
}

// failsQualityGate rejects generic boilerplate and undersized answers.
// Swahili thresholds are lower because the translation step shortens text.
func (s *ChatService) failsQualityGate(response, language string) bool {
	lowered := strings.ToLower(response)
	words := countWords(response)
	talkTo := strings.Count(lowered, "talk to")

	tooGeneric := containsAnyPhrase(lowered, s.pol.Chat.GenericPhrases) &&
		(words < 50 || talkTo >= 2 || (talkTo >= 1 && words < 30))

	return tooGeneric || tooShort(response, language)
}

func tooShort(response, language string) bool {
	minWords, minSentences := 30, 3
	if language == domain.LanguageSwahili {
		minWords, minSentences = 20, 2
	}
	return countWords(response) < minWords || countSentences(response) < minSentences
}

func (s *ChatService) formatHistory(ctx context.Context, userID, conversationID string) string {
	messages, err := s.store.History(ctx, userID, conversationID)
	if err != nil {
		log.Printf("history read failed, answering without history: %v", err)
		telemetry.CaptureError(ctx, err)
		return ""
	}
	if len(messages) > domain.MaxHistoryMessages {
		messages = messages[len(messages)-domain.MaxHistoryMessages:]
	}
	var lines []string
	for _, msg := range messages {
		lines = append(lines, msg.Role+": "+msg.Text)
	}
	return strings.Join(lines, "\n")
}

func (s *ChatService) persistTurn(ctx context.Context, userID, conversationID, input, response string) {
	s.appendMessage(ctx, userID, conversationID, domain.RoleUser, input)
	s.appendMessage(ctx, userID, conversationID, domain.RoleAssistant, response)
}

// appendMessage persists one message. Store failures are logged and reported
// but never surface to the user; the worst case loses the turn from history.
func (s *ChatService) appendMessage(ctx context.Context, userID, conversationID, role, text string) {
	if err := s.store.AppendMessage(ctx, userID, conversationID, role, text); err != nil {
		log.Printf("failed to persist %s message: %v", role, err)
		telemetry.CaptureError(ctx, err)
	}
}

// newLocalConversationID mints an id in the same timestamp format the stores
// use, for turns where the store could not create one.
func newLocalConversationID() string {
	now := time.Now().UTC()
	return now.Format("20060102150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
}
