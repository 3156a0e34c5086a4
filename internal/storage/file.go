package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
)

// FileStore keeps each transcript in <dir>/<session>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store. The directory is created lazily
// on the first save.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("base directory must be provided")
	}
	return &FileStore{dir: dir}, nil
}

// Backend implements Store.
func (s *FileStore) Backend() string {
	return BackendFilesystem
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, sessionID string) ([]chat.Message, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []chat.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	return Decode(data)
}

// Save implements Store. The document is written to a temp file and renamed
// into place so readers never observe a partial transcript.
func (s *FileStore) Save(_ context.Context, sessionID string, messages []chat.Message) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}

	data, err := Encode(messages)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "transcript-*.json")
	if err != nil {
		return fmt.Errorf("create temp transcript file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write transcript: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close transcript temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist transcript: %w", err)
	}

	return nil
}

func (s *FileStore) path(sessionID string) (string, error) {
	if !chat.ValidSessionID(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, objectName(sessionID)), nil
}

var _ Store = (*FileStore)(nil)
