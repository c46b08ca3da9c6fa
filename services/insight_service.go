package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Message is one role-tagged turn of an insight request. Role "system"
// becomes the model's system instruction; everything else is sent as
// conversation content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InsightService generates a narrative insight from composed messages.
// Callers bound the response with maxTokens and pin temperature so the
// same inputs produce comparable output.
type InsightService interface {
	GenerateResponse(ctx context.Context, messages []Message, temperature float32, maxTokens int32) (string, error)
}

// geminiInsightService backs InsightService with Google Gemini.
type geminiInsightService struct {
	client *genai.Client
	model  string
}

// NewGeminiInsightService wraps a genai client. model is e.g.
// "gemini-2.5-flash".
func NewGeminiInsightService(client *genai.Client, model string) InsightService {
	return &geminiInsightService{client: client, model: model}
}

func (g *geminiInsightService) GenerateResponse(ctx context.Context, messages []Message, temperature float32, maxTokens int32) (string, error) {
	var system *genai.Content
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == "system" {
			parts := genai.Text(m.Content)
			if len(parts) > 0 {
				system = parts[0]
			}
			continue
		}
		role := m.Role
		if role != "user" && role != "model" {
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("insight request contains no user messages")
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   maxTokens,
		SystemInstruction: system,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text.String(), nil
}
