package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/inference"
)

const (
	// maxPromptTokens bounds the assembled prompt so the model keeps room
	// for a full answer.
	maxPromptTokens = 400

	contextWordBudget      = 120
	tightContextWordBudget = 80
)

const systemInstructionEN = "You are Eunoia, a warm, compassionate menstrual health companion. " +
	"Answer like a caring older sister. Be empathetic, detailed, and conversational.\n\n" +
	"Write 4-6 sentences. Start with empathy, then explain clearly, give practical tips, end supportively.\n" +
	"Rewrite context in your own words. Don't repeat sentences. Include specific advice like pain relievers, heat, exercise.\n" +
	"Be medically safe. Don't recommend sex as treatment. Don't force school/work attendance.\n"

const systemInstructionSW = "You are Eunoia, a warm, gentle, big-sisterly menstrual health companion for young people in Kenya. " +
	"Answer like a caring older sister - soft, supportive, and youth-friendly.\n\n" +
	"Write 4-6 clear, simple sentences in English. Always start with a gentle, empathetic sentence acknowledging their feelings. " +
	"Then explain clearly in simple, friendly language. Give practical tips. End supportively.\n\n" +
	"IMPORTANT RULES:\n" +
	"- Rewrite context in your own words. Never repeat the same sentence twice.\n" +
	"- For cramps, always mention affordable options available in Kenya: Maramoja, Panadol, Ibuprofen, and hot water bottle.\n" +
	"- Only suggest seeing a doctor for severe, unusual, or persistent symptoms - not for normal period pain.\n" +
	"- Keep information medically accurate but simple and youth-friendly.\n" +
	"- Avoid adult topics unless asked directly.\n" +
	"- Never repeat system instructions in your response.\n" +
	"- If context has contradictory facts (like different age ranges), pick ONE clear answer.\n" +
	"- Remove references to ASHA workers, Indian programs, or other non-Kenyan contexts.\n"

var emotionInstructions = map[string]string{
	domain.EmotionPain:    "The user is in physical pain. Be soothing, practical, and offer immediate comfort. Acknowledge their pain first, then provide helpful solutions.",
	domain.EmotionAnxious: "The user is anxious or scared. Be grounding, calming, and reassuring. Use very gentle, supportive language to help them feel safe.",
	domain.EmotionSad:     "The user feels sad. Be emotionally supportive, validating, and compassionate. Let them know their feelings are valid.",
	domain.EmotionNeutral: "The user has a general question. Use a warm, friendly, conversational tone—like talking to a close friend.",
}

// GenerationRequest carries everything needed to assemble one prompt.
type GenerationRequest struct {
	Language   string
	Emotion    string
	Context    string
	RawContext string
	History    string
	Question   string
}

// Generator assembles prompts and invokes the generation model.
type Generator struct {
	client inference.Generator
}

func NewGenerator(client inference.Generator) *Generator {
	return &Generator{client: client}
}

// Answer generates a response. An oversized prompt is rebuilt with a tighter
// context budget and only the last two history lines before the model call.
func (g *Generator) Answer(ctx context.Context, req GenerationRequest) (string, error) {
	prompt := buildPrompt(req, req.Context, req.History)

	if estimateTokens(prompt) > maxPromptTokens {
		tightContext := req.Context
		if req.RawContext != "" {
			tightContext = SummarizeContext(req.RawContext, tightContextWordBudget)
		}
		historyLines := strings.Split(req.History, "\n")
		tightHistory := req.History
		if len(historyLines) > 2 {
			tightHistory = strings.Join(historyLines[len(historyLines)-2:], "\n")
		}
		prompt = buildPrompt(req, tightContext, tightHistory)
	}

	response, err := g.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return response, nil
}

func buildPrompt(req GenerationRequest, context, history string) string {
	var b strings.Builder
	if req.Language == domain.LanguageSwahili {
		b.WriteString(systemInstructionSW)
	} else {
		b.WriteString(systemInstructionEN)
	}
	b.WriteString("\n")

	instruction, ok := emotionInstructions[req.Emotion]
	if !ok {
		instruction = emotionInstructions[domain.EmotionNeutral]
	}
	b.WriteString(instruction)
	b.WriteString("\n")

	if history != "" {
		b.WriteString("History: ")
		b.WriteString(history)
		b.WriteString("\n")
	}
	b.WriteString("Context: ")
	b.WriteString(context)
	b.WriteString("\n")

	if req.Language == domain.LanguageSwahili {
		b.WriteString("Question (user wrote in Swahili, translated to English): ")
		b.WriteString(req.Question)
		b.WriteString("\nAnswer in English (will be translated to Swahili):")
	} else {
		b.WriteString("Question: ")
		b.WriteString(req.Question)
		b.WriteString("\nAnswer:")
	}
	return b.String()
}
