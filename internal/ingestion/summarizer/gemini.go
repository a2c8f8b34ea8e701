// Package summarizer produces article summaries with Google Gemini and guards
// the calls with a timeout and a circuit breaker.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"github.com/inkwell-dev/website/pkg/config"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

// generator is the part of *genai.GenerativeModel used here.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini summarizes article bodies with a Gemini generative model.
type Gemini struct {
	client *genai.Client
	model  generator
	prompt *template.Template
	logger *slog.Logger
}

// NewGemini connects to the Gemini API with cfg.APIKey.
func NewGemini(ctx context.Context, cfg config.SummarizerConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	prompt, err := parsePrompt(cfg.Prompt)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.2)

	return &Gemini{
		client: client,
		model:  model,
		prompt: prompt,
		logger: slog.Default().With("component", "summarizer", "model", cfg.Model),
	}, nil
}

func parsePrompt(text string) (*template.Template, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing summarizer prompt: %w", err)
	}
	return tmpl, nil
}

// Summarize renders the prompt around body and returns the model's text.
func (g *Gemini) Summarize(ctx context.Context, body string) (string, error) {
	var prompt strings.Builder
	if err := g.prompt.Execute(&prompt, struct{ Body string }{body}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt.String()))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	summary := strings.TrimSpace(sb.String())
	if summary == "" {
		return "", ErrEmptyResponse
	}
	g.logger.Debug("summary generated", "body_len", len(body), "summary_len", len(summary))
	return summary, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
