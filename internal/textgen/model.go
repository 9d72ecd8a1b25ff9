package textgen

import "os"

// Gemini model IDs usable for post drafting.
const (
	// ModelGemini3FlashPreview is best for speed + intelligence.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25FlashLite is for high-throughput, lowest cost.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = ModelGemini3FlashPreview

// resolveModel picks the model to use, in priority order:
// explicit argument, GEMINI_MODEL environment variable, DefaultModel.
func resolveModel(model string) string {
	if model != "" {
		return model
	}
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModel
}
