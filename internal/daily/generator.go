// internal/daily/generator.go
//
// Daily word generation through a generative-text API (Google Gemini).
// The model is asked for one themed word; the reply is cleaned up here and
// validated again by the Service before it is stored.

package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"google.golang.org/genai"

	"github.com/robalobadob/geekdle/internal/words"
)

const DefaultModel = "gemini-2.0-flash"

var ErrNoWord = errors.New("generator returned no usable word")

// Request describes the word a Generator should produce.
type Request struct {
	Category    string // display name, e.g. "Programming"
	Description string // optional theme hint
	MinLen      int
	MaxLen      int
	Avoid       []string // recent words not to repeat
}

// Generator produces a candidate secret for a category.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIGenerator asks a Gemini model for the daily word.
type GenAIGenerator struct {
	models contentGenerator
	model  string
}

// NewGenAIGenerator creates a Gemini-backed generator.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{models: client.Models, model: model}, nil
}

// Generate implements Generator.
func (g *GenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt(req)), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](1.0),
		SystemInstruction: genai.NewContentFromText(
			"You pick secret words for a Wordle-style game for geeks. Reply with the word only.",
			genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	w := firstWord(resp.Text())
	if w == "" {
		return "", ErrNoWord
	}
	return w, nil
}

func prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give one single English word related to the category %q", req.Category)
	if req.Description != "" {
		fmt.Fprintf(&b, " (%s)", req.Description)
	}
	fmt.Fprintf(&b, ". It must have between %d and %d letters, no spaces, digits, hyphens or accents.", req.MinLen, req.MaxLen)
	if len(req.Avoid) > 0 {
		fmt.Fprintf(&b, " Do not use any of: %s.", strings.Join(req.Avoid, ", "))
	}
	return b.String()
}

// firstWord extracts the first run of letters from a model reply
// ("**Kernel**.\n" → "KERNEL").
func firstWord(reply string) string {
	reply = words.Normalize(reply)
	start := strings.IndexFunc(reply, unicode.IsLetter)
	if start < 0 {
		return ""
	}
	reply = reply[start:]
	if end := strings.IndexFunc(reply, func(r rune) bool { return !unicode.IsLetter(r) }); end >= 0 {
		reply = reply[:end]
	}
	return reply
}
