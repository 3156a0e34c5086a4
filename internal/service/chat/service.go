package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/metrics"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
	"github.com/zhouzirui/twinchat/backend/internal/storage"
)

// ApologyReply 在模型没有返回内容时使用。
const ApologyReply = "I apologize, but I could not generate a response."

var (
	ErrMessageRequired  = errors.New("message is required")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrAIUnavailable    = errors.New("API key not configured")
)

// 轮次结果标签。
const (
	outcomeSuccess     = "success"
	outcomeInvalid     = "invalid"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

// Responder produces assistant replies from the stored history and the new
// user message.
type Responder interface {
	GenerateResponse(ctx context.Context, sessionID string, history []chat.Message, userMessage string) (*schema.Message, error)
	StreamResponse(ctx context.Context, sessionID string, history []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error)
}

// TurnResult is the outcome of one successful chat turn.
type TurnResult struct {
	Reply     string `json:"response"`
	SessionID string `json:"session_id"`
}

// Service orchestrates a chat turn: load history, ask the responder, append
// the two new messages and persist the whole transcript.
type Service struct {
	store     storage.Store
	responder Responder
	log       zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records turn outcomes and completion latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how fresh session ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService wires the orchestrator. responder may be nil when no completion
// credentials are configured; every turn then fails with ErrAIUnavailable.
func NewService(store storage.Store, responder Responder, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		responder: responder,
		log:       log,
		now:       time.Now,
		newID:     chat.NewSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a responder is configured.
func (s *Service) Available() bool {
	return s.responder != nil
}

// HandleTurn runs one blocking chat turn.
func (s *Service) HandleTurn(ctx context.Context, sessionID, message string) (TurnResult, error) {
	sessionID, history, err := s.begin(ctx, sessionID, message)
	if err != nil {
		return TurnResult{}, err
	}

	start := time.Now()
	response, err := s.responder.GenerateResponse(ctx, sessionID, history, message)
	s.metrics.RecordCompletion(time.Since(start))
	if err != nil {
		s.metrics.RecordTurn(outcomeError)
		return TurnResult{}, fmt.Errorf("generate response: %w", err)
	}

	return s.commit(ctx, sessionID, history, message, replyText(response))
}

// StreamTurn runs a chat turn, forwarding each content delta to onDelta as it
// arrives. The transcript is only persisted once the full reply is assembled.
// A failing onDelta stops forwarding but the turn still completes.
func (s *Service) StreamTurn(ctx context.Context, sessionID, message string, onDelta func(string) error) (TurnResult, error) {
	sessionID, history, err := s.begin(ctx, sessionID, message)
	if err != nil {
		return TurnResult{}, err
	}

	start := time.Now()
	stream, err := s.responder.StreamResponse(ctx, sessionID, history, message)
	if err != nil {
		s.metrics.RecordCompletion(time.Since(start))
		s.metrics.RecordTurn(outcomeError)
		return TurnResult{}, fmt.Errorf("stream response: %w", err)
	}
	defer stream.Close()

	var chunks []*schema.Message
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.metrics.RecordCompletion(time.Since(start))
			s.metrics.RecordTurn(outcomeError)
			return TurnResult{}, fmt.Errorf("receive response chunk: %w", err)
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)

		if onDelta != nil && chunk.Content != "" {
			if err := onDelta(chunk.Content); err != nil {
				s.log.Warn().Err(err).Str("session_id", sessionID).Msg("stopped forwarding deltas")
				onDelta = nil
			}
		}
	}
	s.metrics.RecordCompletion(time.Since(start))

	var response *schema.Message
	if len(chunks) > 0 {
		response, err = schema.ConcatMessages(chunks)
		if err != nil {
			s.metrics.RecordTurn(outcomeError)
			return TurnResult{}, fmt.Errorf("assemble streamed response: %w", err)
		}
	}

	return s.commit(ctx, sessionID, history, message, replyText(response))
}

// Conversation returns the stored transcript of a session.
func (s *Service) Conversation(ctx context.Context, sessionID string) ([]chat.Message, error) {
	sessionID = strings.TrimSpace(sessionID)
	if !chat.ValidSessionID(sessionID) {
		return nil, ErrInvalidSessionID
	}
	messages, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return messages, nil
}

// begin validates the input, resolves the session id and loads its history.
func (s *Service) begin(ctx context.Context, sessionID, message string) (string, []chat.Message, error) {
	if strings.TrimSpace(message) == "" {
		s.metrics.RecordTurn(outcomeInvalid)
		return "", nil, ErrMessageRequired
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = s.newID()
	} else if !chat.ValidSessionID(sessionID) {
		s.metrics.RecordTurn(outcomeInvalid)
		return "", nil, ErrInvalidSessionID
	}

	if s.responder == nil {
		s.metrics.RecordTurn(outcomeUnavailable)
		return "", nil, ErrAIUnavailable
	}

	history, err := s.store.Load(ctx, sessionID)
	if err != nil {
		s.metrics.RecordTurn(outcomeError)
		return "", nil, fmt.Errorf("load conversation: %w", err)
	}
	return sessionID, history, nil
}

// commit 追加本轮的两条消息并整体覆盖保存。
func (s *Service) commit(ctx context.Context, sessionID string, history []chat.Message, message, reply string) (TurnResult, error) {
	timestamp := chat.FormatTimestamp(s.now())

	updated := make([]chat.Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		chat.Message{Role: chat.RoleUser, Content: message, Timestamp: timestamp},
		chat.Message{Role: chat.RoleAssistant, Content: reply, Timestamp: timestamp},
	)

	if err := s.store.Save(ctx, sessionID, updated); err != nil {
		s.metrics.RecordTurn(outcomeError)
		return TurnResult{}, fmt.Errorf("save conversation: %w", err)
	}

	s.metrics.RecordTurn(outcomeSuccess)
	s.log.Info().
		Str("session_id", sessionID).
		Int("messages", len(updated)).
		Int("reply_length", len(reply)).
		Msg("chat turn completed")

	return TurnResult{Reply: reply, SessionID: sessionID}, nil
}

func replyText(response *schema.Message) string {
	if response == nil || response.Content == "" {
		return ApologyReply
	}
	return response.Content
}

// IsCredentialError reports whether err stems from missing or rejected
// completion credentials.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAIUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "401")
}
