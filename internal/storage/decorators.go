package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/metrics"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
)

type instrumentedStore struct {
	next    Store
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// Instrument records metrics and debug logs for every operation of next.
func Instrument(next Store, m *metrics.Metrics, log zerolog.Logger) Store {
	return &instrumentedStore{next: next, metrics: m, log: log}
}

func (s *instrumentedStore) Backend() string {
	return s.next.Backend()
}

func (s *instrumentedStore) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	start := time.Now()
	messages, err := s.next.Load(ctx, sessionID)
	s.record("load", sessionID, len(messages), time.Since(start), err)
	return messages, err
}

func (s *instrumentedStore) Save(ctx context.Context, sessionID string, messages []chat.Message) error {
	start := time.Now()
	err := s.next.Save(ctx, sessionID, messages)
	s.record("save", sessionID, len(messages), time.Since(start), err)
	return err
}

func (s *instrumentedStore) record(op, sessionID string, count int, duration time.Duration, err error) {
	status := "success"
	event := s.log.Debug()
	if err != nil {
		status = "error"
		event = s.log.Error().Err(err)
	}
	s.metrics.RecordStoreOperation(s.next.Backend(), op, status, duration)

	event.
		Str("backend", s.next.Backend()).
		Str("operation", op).
		Str("session_id", sessionID).
		Int("messages", count).
		Dur("duration", duration).
		Msg("conversation store operation")
}

type lenientStore struct {
	Store
	log zerolog.Logger
}

// Lenient converts every Load failure into an empty transcript. A failed read
// is then indistinguishable from a new session; Save errors still surface.
func Lenient(next Store, log zerolog.Logger) Store {
	return &lenientStore{Store: next, log: log}
}

func (s *lenientStore) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	messages, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("transcript read failed, treating as empty history")
		return []chat.Message{}, nil
	}
	return messages, nil
}
