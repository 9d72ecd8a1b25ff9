// Package textgen drafts post text with the Gemini API.
//
// An optional image is normalized and attached inline so the model can
// ground the draft in what the photo shows. EXIF capture time, GPS, and
// camera info ride along as prompt context when the image carries them.
package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/threadkit/threadspipe/internal/imaging"
	"github.com/threadkit/threadspipe/internal/jsonutil"
)

// Client wraps a Gemini API client configured for post drafting.
type Client struct {
	genai *genai.Client
	model string
}

// New creates a Gemini-backed drafting client. An empty model selects
// GEMINI_MODEL from the environment, falling back to DefaultModel.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{genai: gc, model: resolveModel(model)}, nil
}

// Draft is a structured post draft: the text and separately suggested
// hashtags, ready for the publisher's tag handling.
type Draft struct {
	Text     string   `json:"text"`
	Hashtags []string `json:"hashtags"`
}

// Complete drafts post text for the given request. When image data is
// provided it is downscaled and attached inline, and its EXIF metadata is
// appended to the prompt as photo context.
func (c *Client) Complete(ctx context.Context, request string, image []byte) (string, error) {
	return c.generate(ctx, composeSystemPrompt, request, image)
}

// ComposeDraft drafts a post as structured output, with hashtags kept out
// of the text so they can flow through tag handling instead.
func (c *Client) ComposeDraft(ctx context.Context, request string, image []byte) (*Draft, error) {
	raw, err := c.generate(ctx, draftSystemPrompt, request, image)
	if err != nil {
		return nil, err
	}

	draft, err := jsonutil.Parse[Draft](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse draft response: %w", err)
	}
	if strings.TrimSpace(draft.Text) == "" {
		return nil, fmt.Errorf("draft response carried no post text")
	}
	return &draft, nil
}

func (c *Client) generate(ctx context.Context, systemPrompt, request string, image []byte) (string, error) {
	var parts []*genai.Part
	photoContext := ""

	if len(image) > 0 {
		data, mimeType, err := imaging.Normalize(image, imaging.DefaultMaxDimension)
		if err != nil {
			return "", fmt.Errorf("failed to prepare attached image: %w", err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mimeType, Data: data},
		})
		if meta, err := imaging.ReadMeta(image); err == nil {
			photoContext = meta.PromptContext()
		}
	}
	parts = append(parts, &genai.Part{Text: buildComposePrompt(request, photoContext)})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	log.Debug().
		Str("model", c.model).
		Int("requestLength", len(request)).
		Bool("hasImage", len(image) > 0).
		Msg("Requesting post draft from Gemini")

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	log.Debug().Int("responseLength", len(text)).Msg("Received post draft from Gemini")
	return text, nil
}
