package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/twinchat/backend/internal/metrics"
)

// ErrNotConfigured 表示未配置密码哈希。
var ErrNotConfigured = errors.New("password authentication not configured")

// 校验结果标签。
const (
	resultGranted      = "granted"
	resultDenied       = "denied"
	resultUnconfigured = "unconfigured"
	resultError        = "error"
)

// Gate checks a candidate password against one shared bcrypt hash. It keeps
// no state between calls.
type Gate struct {
	hash    []byte
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewGate creates a gate for the given hash. An empty hash yields a gate that
// reports ErrNotConfigured on every check.
func NewGate(hash string, log zerolog.Logger, m *metrics.Metrics) *Gate {
	return &Gate{
		hash:    []byte(strings.TrimSpace(hash)),
		log:     log,
		metrics: m,
	}
}

// Configured reports whether a hash is present.
func (g *Gate) Configured() bool {
	return len(g.hash) > 0
}

// Verify returns true only for the password matching the configured hash.
func (g *Gate) Verify(password string) (bool, error) {
	if !g.Configured() {
		g.metrics.RecordPasswordCheck(resultUnconfigured)
		return false, ErrNotConfigured
	}

	err := bcrypt.CompareHashAndPassword(g.hash, []byte(password))
	switch {
	case err == nil:
		g.metrics.RecordPasswordCheck(resultGranted)
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		g.metrics.RecordPasswordCheck(resultDenied)
		g.log.Info().Msg("password rejected")
		return false, nil
	default:
		g.metrics.RecordPasswordCheck(resultError)
		g.log.Error().Err(err).Msg("password hash comparison failed")
		return false, fmt.Errorf("compare password hash: %w", err)
	}
}

// HashPassword 生成可写入 CHAT_PASSWORD_HASH 的 bcrypt 哈希。
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
