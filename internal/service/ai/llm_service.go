package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/config"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
)

// HistoryLimit 是每次请求携带的最近历史消息条数。
const HistoryLimit = 20

// Service encapsulates the completion pipeline: system prompt, windowed
// history and the new user message feed a single chat model.
type Service struct {
	prompts *PromptBuilder
	cfg     config.AIConfig
	chain   compose.Runnable[map[string]any, *schema.Message]
	log     zerolog.Logger
}

// NewService compiles the prompt → model chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, prompts *PromptBuilder, cfg config.AIConfig, log zerolog.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model must be provided")
	}
	if prompts == nil {
		return nil, fmt.Errorf("prompt builder must be provided")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		prompts: prompts,
		cfg:     cfg,
		chain:   runnable,
		log:     log,
	}, nil
}

// GenerateResponse runs one blocking completion.
func (s *Service) GenerateResponse(ctx context.Context, sessionID string, history []chat.Message, userMessage string) (*schema.Message, error) {
	input, err := s.buildChainInput(ctx, history, userMessage)
	if err != nil {
		return nil, err
	}

	response, err := s.chain.Invoke(ctx, input, s.callOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	s.log.Debug().
		Str("session_id", sessionID).
		Int("history", len(input["history"].([]*schema.Message))).
		Int("length", len(response.Content)).
		Msg("generated response")
	return response, nil
}

// StreamResponse streams AI response chunks via the configured chain.
func (s *Service) StreamResponse(ctx context.Context, sessionID string, history []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	input, err := s.buildChainInput(ctx, history, userMessage)
	if err != nil {
		return nil, err
	}

	stream, err := s.chain.Stream(ctx, input, s.callOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}

	s.log.Debug().Str("session_id", sessionID).Msg("streaming response")
	return stream, nil
}

func (s *Service) callOptions() []compose.Option {
	opts := []model.Option{
		model.WithTemperature(config.Temperature),
		model.WithTopP(config.TopP),
		model.WithMaxTokens(config.MaxTokens),
	}
	if s.cfg.Model != "" {
		opts = append(opts, model.WithModel(s.cfg.Model))
	}
	return []compose.Option{compose.WithChatModelOption(opts...)}
}

func (s *Service) buildChainInput(ctx context.Context, history []chat.Message, userMessage string) (map[string]any, error) {
	system, err := s.prompts.Build(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"system":  system,
		"history": buildHistoryMessages(history),
		"query":   userMessage,
	}, nil
}

// buildHistoryMessages 只保留最近 HistoryLimit 条消息，不修改原切片。
func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	startIdx := 0
	if len(messages) > HistoryLimit {
		startIdx = len(messages) - HistoryLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
