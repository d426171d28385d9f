package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atsquick/internal/config"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := BuildAnalysisPrompt()

	for _, want := range []string{
		"You are an ATS resume analysis AI.",
		"return ONLY valid JSON",
		`"score"`,
		`"skills"`,
		`"jobMatches"`,
		`"suggestions"`,
		"present",
		"ReactJS",
		"transferable",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	if prompt != BuildAnalysisPrompt() {
		t.Error("Prompt must be deterministic")
	}
}

func TestResolvePrompt(t *testing.T) {
	tests := []struct {
		name     string
		loaded   string
		config   string
		expected string
	}{
		{name: "file wins", loaded: "file", config: "inline", expected: "file"},
		{name: "inline over default", config: "inline", expected: "inline"},
		{name: "default", expected: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolvePrompt(tt.loaded, tt.config, "default"); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPromptResolverInlineConfig(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{CustomPrompts: config.PromptConfig{AnalyzeResume: "inline prompt"}}}

	if got := NewPromptResolver(cfg).AnalysisPrompt(); got != "inline prompt" {
		t.Errorf("Expected inline prompt, got %q", got)
	}

	var nilResolver *PromptResolver
	if got := nilResolver.AnalysisPrompt(); got != BuildAnalysisPrompt() {
		t.Error("Nil resolver must return the default prompt")
	}
}

// Loads a prompt into process-wide state, so it runs after the inline test
func TestPromptResolverPrefersFile(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "analyze.md")
	if err := os.WriteFile(promptFile, []byte("prompt from file"), 0600); err != nil {
		t.Fatalf("Failed to write prompt file: %v", err)
	}

	cfg := &config.Config{AI: config.AIConfig{CustomPrompts: config.PromptConfig{
		AnalyzeResume:     "inline prompt",
		AnalyzeResumeFile: promptFile,
	}}}
	if err := cfg.ReloadAnalyzePrompt(); err != nil {
		t.Fatalf("Failed to load prompt file: %v", err)
	}

	if got := NewPromptResolver(cfg).AnalysisPrompt(); got != "prompt from file" {
		t.Errorf("Expected file prompt, got %q", got)
	}
}
