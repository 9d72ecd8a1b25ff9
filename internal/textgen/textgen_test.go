package textgen

import (
	"strings"
	"testing"
)

func TestBuildComposePrompt(t *testing.T) {
	prompt := buildComposePrompt("announce the v2 release", "Photo context: taken on 2 May 2025 at 09:15.")

	if !strings.Contains(prompt, "announce the v2 release") {
		t.Errorf("prompt does not carry the request: %q", prompt)
	}
	if !strings.Contains(prompt, "### Photo Context") {
		t.Errorf("prompt missing photo context section: %q", prompt)
	}
	if !strings.Contains(prompt, "taken on 2 May 2025") {
		t.Errorf("prompt missing photo context body: %q", prompt)
	}
}

func TestBuildComposePrompt_NoPhotoContext(t *testing.T) {
	prompt := buildComposePrompt("say hi", "")

	if strings.Contains(prompt, "Photo Context") {
		t.Errorf("prompt has a photo context section without context: %q", prompt)
	}
}

func TestResolveModel(t *testing.T) {
	if got := resolveModel("gemini-2.5-pro"); got != "gemini-2.5-pro" {
		t.Errorf("explicit model = %q, want gemini-2.5-pro", got)
	}

	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash-lite")
	if got := resolveModel(""); got != ModelGemini25FlashLite {
		t.Errorf("env model = %q, want %q", got, ModelGemini25FlashLite)
	}

	t.Setenv("GEMINI_MODEL", "")
	if got := resolveModel(""); got != DefaultModel {
		t.Errorf("default model = %q, want %q", got, DefaultModel)
	}
}

func TestSystemPromptsEmbedded(t *testing.T) {
	if strings.TrimSpace(composeSystemPrompt) == "" {
		t.Fatal("compose system prompt is empty")
	}
	if !strings.Contains(draftSystemPrompt, `"hashtags"`) {
		t.Fatal("draft system prompt does not pin the JSON contract")
	}
}
