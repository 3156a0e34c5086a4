package config

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// 固定的采样参数，所有补全请求共用。
const (
	Temperature float32 = 0.4
	TopP        float32 = 0.9
	MaxTokens           = 2000
)

// 支持的大模型提供方。
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Resources ResourceConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderOpenAI
	}
	switch cfg.AI.Provider {
	case ProviderOpenAI, ProviderArk:
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER value %q", cfg.AI.Provider)
	}

	cfg.AI.APIKey = strings.TrimSpace(cfg.AI.APIKey)
	cfg.Auth.PasswordHash = strings.TrimSpace(cfg.Auth.PasswordHash)
	cfg.Storage.Bucket = strings.TrimSpace(cfg.Storage.Bucket)

	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DebugErrors bool   `env:"DEBUG_ERRORS" envDefault:"false"`
	Addr        string
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider   string        `env:"LLM_PROVIDER" envDefault:"openai"`
	APIKey     string        `env:"OPENROUTER_API_KEY"`
	BaseURL    string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	Model      string        `env:"OPENAI_MODEL" envDefault:"openai/gpt-4o-mini"`
	Referrer   string        `env:"OPENROUTER_REFERRER"`
	Title      string        `env:"OPENROUTER_TITLE"`
	Timeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"0s"`
	ArkAPIKey  string        `env:"ARK_API_KEY"`
	AccessKey  string        `env:"ARK_ACCESS_KEY"`
	SecretKey  string        `env:"ARK_SECRET_KEY"`
	ArkBaseURL string        `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region     string        `env:"ARK_REGION" envDefault:"cn-beijing"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	if c.Provider == ProviderArk {
		return c.ArkAPIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	}
	return c.APIKey != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("API key not configured for provider %s", c.Provider)
	}

	temperature := Temperature
	topP := TopP
	maxTokens := MaxTokens

	if c.Provider == ProviderArk {
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.ArkBaseURL,
			Region:      c.Region,
			APIKey:      c.ArkAPIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			TopP:        &topP,
		})
	}

	cfg := &openai.ChatModelConfig{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Timeout:     c.Timeout,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}
	if headers := c.attributionHeaders(); len(headers) > 0 {
		cfg.HTTPClient = &http.Client{
			Timeout:   c.Timeout,
			Transport: headerTransport{rt: http.DefaultTransport, headers: headers},
		}
	}

	return openai.NewChatModel(ctx, cfg)
}

// attributionHeaders 返回 OpenRouter 可选的来源标识请求头。
func (c AIConfig) attributionHeaders() http.Header {
	h := http.Header{}
	if c.Referrer != "" {
		h.Set("HTTP-Referer", c.Referrer)
	}
	if c.Title != "" {
		h.Set("X-Title", c.Title)
	}
	return h
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

// StorageConfig 描述会话记录的持久化方式。
type StorageConfig struct {
	Bucket      string `env:"AWS_S3_MEMORY_BUCKET"`
	Region      string `env:"AWS_DEFAULT_REGION" envDefault:"eu-central-1"`
	AccessKey   string `env:"AWS_IAM_ID_KEY"`
	SecretKey   string `env:"AWS_IAM_SECRET_KEY"`
	Endpoint    string `env:"AWS_S3_ENDPOINT"`
	Dir         string `env:"MEMORY_DIR" envDefault:"memory"`
	StrictReads bool   `env:"STORE_STRICT_READS" envDefault:"false"`
}

// UseS3 表示是否选择对象存储后端。
func (c StorageConfig) UseS3() bool {
	return c.Bucket != ""
}

// AuthConfig 描述访问口令配置。
type AuthConfig struct {
	PasswordHash string `env:"CHAT_PASSWORD_HASH"`
}

// ResourceConfig 描述人物资料所在目录。
type ResourceConfig struct {
	Dir string `env:"RESOURCES_DIR" envDefault:"data"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}
