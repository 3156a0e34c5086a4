package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/zhouzirui/twinchat/backend/internal/model/persona"
)

func TestRenderSystemPromptIsDeterministic(t *testing.T) {
	bundle := &persona.Bundle{
		Facts:    map[string]any{"name": "Ada", "zeta": 1, "alpha": []any{"x", "y"}, "mid": map[string]any{"b": 2, "a": 1}},
		Summary:  "  Summary text  ",
		Style:    "Style text",
		LinkedIn: persona.LinkedInFallback,
	}

	first := RenderSystemPrompt(bundle)
	for i := 0; i < 20; i++ {
		if got := RenderSystemPrompt(bundle); got != first {
			t.Fatalf("render %d differs:\n%s\n---\n%s", i, got, first)
		}
	}

	for _, want := range []string{"digital twin of Ada", "Summary text\n", "Style text", persona.LinkedInFallback} {
		if !strings.Contains(first, want) {
			t.Fatalf("prompt missing %q:\n%s", want, first)
		}
	}
	if strings.Index(first, `"alpha"`) > strings.Index(first, `"zeta"`) {
		t.Fatalf("facts keys must be sorted:\n%s", first)
	}
}

func TestRenderSystemPromptWithoutName(t *testing.T) {
	prompt := RenderSystemPrompt(&persona.Bundle{Facts: map[string]any{}})
	if !strings.Contains(prompt, "the person described below") {
		t.Fatalf("expected anonymous fallback, got:\n%s", prompt)
	}
}

func TestPromptBuilderUsesStore(t *testing.T) {
	builder := NewPromptBuilder(testPersonaStore())

	first, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build err: %v", err)
	}
	second, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build err: %v", err)
	}
	if first != second {
		t.Fatal("prompt must be stable across calls")
	}
	if !strings.Contains(first, "Builds analytical engines.") || !strings.Contains(first, "Analytical Engine Co.") {
		t.Fatalf("prompt missing resources:\n%s", first)
	}
}
