package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrResourceMissing is returned when a required persona artifact is absent.
var ErrResourceMissing = errors.New("persona resource missing")

const (
	summaryFile  = "summary.txt"
	styleFile    = "style.txt"
	linkedInFile = "linkedin.txt"
)

var factsFiles = []string{"facts.json", "facts.yaml", "facts.yml"}

// Store exposes the persona bundle to the prompt builder.
type Store interface {
	Load(ctx context.Context) (*Bundle, error)
}

// FSStore reads the persona artifacts from a filesystem once and keeps the
// first successfully built bundle for the life of the process. Failed loads
// are not cached.
type FSStore struct {
	fsys fs.FS
	log  zerolog.Logger

	mu     sync.Mutex
	bundle *Bundle
}

// NewFSStore creates a store over fsys.
func NewFSStore(fsys fs.FS, log zerolog.Logger) *FSStore {
	return &FSStore{fsys: fsys, log: log}
}

// NewDirStore creates a store rooted at dir on the local disk.
func NewDirStore(dir string, log zerolog.Logger) *FSStore {
	return NewFSStore(os.DirFS(dir), log)
}

// Load returns the cached bundle, reading the artifacts on first use.
func (s *FSStore) Load(_ context.Context) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bundle != nil {
		return s.bundle, nil
	}

	bundle, err := s.read()
	if err != nil {
		return nil, err
	}

	s.bundle = bundle
	s.log.Info().Int("facts", len(bundle.Facts)).Msg("persona resources loaded")
	return bundle, nil
}

func (s *FSStore) read() (*Bundle, error) {
	facts, err := s.readFacts()
	if err != nil {
		return nil, err
	}

	summary, err := s.readRequired(summaryFile)
	if err != nil {
		return nil, err
	}

	style, err := s.readRequired(styleFile)
	if err != nil {
		return nil, err
	}

	linkedIn, err := fs.ReadFile(s.fsys, linkedInFile)
	if err != nil {
		s.log.Warn().Err(err).Msg("linkedin profile unavailable, using fallback")
		linkedIn = []byte(LinkedInFallback)
	}

	return &Bundle{
		Facts:    facts,
		Summary:  summary,
		Style:    style,
		LinkedIn: string(linkedIn),
	}, nil
}

func (s *FSStore) readFacts() (map[string]any, error) {
	for _, name := range factsFiles {
		data, err := fs.ReadFile(s.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		var facts map[string]any
		switch path.Ext(name) {
		case ".json":
			err = json.Unmarshal(data, &facts)
		default:
			err = yaml.Unmarshal(data, &facts)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if facts == nil {
			return nil, fmt.Errorf("decode %s: facts must be an object", name)
		}
		return facts, nil
	}
	return nil, fmt.Errorf("%w: facts (tried %v)", ErrResourceMissing, factsFiles)
}

func (s *FSStore) readRequired(name string) (string, error) {
	data, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrResourceMissing, name)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

var _ Store = (*FSStore)(nil)
