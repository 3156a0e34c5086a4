package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/config"
	"github.com/zhouzirui/twinchat/backend/internal/metrics"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
)

// Backend names reported by Store.Backend.
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// Store persists one transcript per session id.
// Load returns an empty transcript, not an error, for an unknown session.
// Save replaces the whole transcript. Implementations do not coordinate
// concurrent saves of the same session: the last writer wins.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]chat.Message, error)
	Save(ctx context.Context, sessionID string, messages []chat.Message) error
	Backend() string
}

// New builds the backend selected by cfg, wrapped with instrumentation and,
// unless strict reads are configured, the lenient read policy.
func New(ctx context.Context, cfg config.StorageConfig, m *metrics.Metrics, log zerolog.Logger) (Store, error) {
	var (
		backend Store
		err     error
	)

	if cfg.UseS3() {
		backend, err = NewS3Store(ctx, cfg)
	} else {
		backend, err = NewFileStore(cfg.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s store: %w", backendName(cfg), err)
	}

	store := Instrument(backend, m, log)
	if !cfg.StrictReads {
		store = Lenient(store, log)
	}

	log.Info().
		Str("backend", store.Backend()).
		Bool("strict_reads", cfg.StrictReads).
		Msg("conversation store ready")
	return store, nil
}

func backendName(cfg config.StorageConfig) string {
	if cfg.UseS3() {
		return BackendS3
	}
	return BackendFilesystem
}

func objectName(sessionID string) string {
	return sessionID + ".json"
}
