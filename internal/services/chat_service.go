package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
)

const studyAssistantPrompt = "You are TutorLink's study assistant. Help students understand concepts, " +
	"plan study sessions and prepare for tutoring. Keep answers concise and encouraging."

const maxChatHistory = 20

// ChatTurn is one previous message in a conversation.
type ChatTurn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Assistant produces a reply to a message given the earlier turns.
type Assistant interface {
	Reply(ctx context.Context, history []ChatTurn, message string) (string, error)
}

type GeminiAssistant struct {
	client *genai.Client
	model  string
}

func NewGeminiAssistant(ctx context.Context, apiKey, model string) (*GeminiAssistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiAssistant{client: client, model: model}, nil
}

func (g *GeminiAssistant) Close() error {
	return g.client.Close()
}

func (g *GeminiAssistant) Reply(ctx context.Context, history []ChatTurn, message string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(studyAssistantPrompt))

	chat := model.StartChat()
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" || turn.Role == "model" {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Text)}})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

type ChatService struct {
	assistant Assistant
	log       *zap.Logger
}

// NewChatService accepts a nil assistant; Reply then reports the feature
// as unavailable.
func NewChatService(assistant Assistant, log *zap.Logger) *ChatService {
	return &ChatService{assistant: assistant, log: log}
}

func (s *ChatService) Reply(ctx context.Context, history []ChatTurn, message string) (string, error) {
	if s.assistant == nil {
		return "", apperror.Unavailable("the study assistant is not configured")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperror.Validation("message", "message is required")
	}
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}
	reply, err := s.assistant.Reply(ctx, history, message)
	if err != nil {
		s.log.Warn("Study assistant failed", zap.Error(err))
		return "", apperror.Unavailable("the study assistant is temporarily unavailable")
	}
	return reply, nil
}
