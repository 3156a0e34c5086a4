package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "LLM_PROVIDER", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENAI_MODEL",
		"AWS_S3_MEMORY_BUCKET", "AWS_DEFAULT_REGION", "MEMORY_DIR", "RESOURCES_DIR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderOpenAI {
		t.Fatalf("unexpected provider %q", cfg.AI.Provider)
	}
	if cfg.AI.BaseURL != "https://openrouter.ai/api/v1" || cfg.AI.Model != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected AI defaults %+v", cfg.AI)
	}
	if cfg.AI.Enabled() {
		t.Fatal("AI must not be enabled without an API key")
	}
	if cfg.Storage.UseS3() || cfg.Storage.Dir != "memory" || cfg.Storage.Region != "eu-central-1" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Resources.Dir != "data" {
		t.Fatalf("unexpected resources dir %q", cfg.Resources.Dir)
	}
}

func TestLoadPortForms(t *testing.T) {
	unsetEnv(t, "LLM_PROVIDER")
	cases := map[string]string{
		"9090":           ":9090",
		":7070":          ":7070",
		"127.0.0.1:6060": "127.0.0.1:6060",
	}
	for port, want := range cases {
		t.Setenv("PORT", port)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load(%q) err: %v", port, err)
		}
		if cfg.Server.Addr != want {
			t.Fatalf("PORT=%q: got %q want %q", port, cfg.Server.Addr, want)
		}
	}

	t.Setenv("PORT", "80 80")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mystery")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadS3Selection(t *testing.T) {
	unsetEnv(t, "PORT", "LLM_PROVIDER")
	t.Setenv("AWS_S3_MEMORY_BUCKET", " transcripts ")
	t.Setenv("AWS_DEFAULT_REGION", "us-east-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if !cfg.Storage.UseS3() || cfg.Storage.Bucket != "transcripts" {
		t.Fatalf("expected S3 selection, got %+v", cfg.Storage)
	}
	if cfg.Storage.Region != "us-east-1" {
		t.Fatalf("unexpected region %q", cfg.Storage.Region)
	}
}

func TestAIEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{"openai with key", AIConfig{Provider: ProviderOpenAI, Model: "m", APIKey: "k"}, true},
		{"openai without key", AIConfig{Provider: ProviderOpenAI, Model: "m"}, false},
		{"openai without model", AIConfig{Provider: ProviderOpenAI, APIKey: "k"}, false},
		{"ark api key", AIConfig{Provider: ProviderArk, Model: "m", ArkAPIKey: "k"}, true},
		{"ark ak/sk", AIConfig{Provider: ProviderArk, Model: "m", AccessKey: "a", SecretKey: "s"}, true},
		{"ark ak only", AIConfig{Provider: ProviderArk, Model: "m", AccessKey: "a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Enabled(); got != tc.want {
				t.Fatalf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHeaderTransportAddsAttribution(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	cfg := AIConfig{Referrer: "https://twin.example", Title: "Twin"}
	client := &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: cfg.attributionHeaders()}}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request err: %v", err)
	}
	resp.Body.Close()

	if got.Get("HTTP-Referer") != "https://twin.example" || got.Get("X-Title") != "Twin" {
		t.Fatalf("attribution headers missing: %v", got)
	}
}
