package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voxa-ai/voxa/domain/repositories"
)

// GeminiModel implements LanguageModel using Google's Gemini API.
// Credentials arrive per call so each session can carry its own key.
type GeminiModel struct {
	model  string
	logger *zap.Logger
}

var _ repositories.LanguageModel = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini-backed language model for the given model name.
func NewGeminiModel(model string, logger *zap.Logger) *GeminiModel {
	return &GeminiModel{
		model:  model,
		logger: logger,
	}
}

func (g *GeminiModel) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// Complete produces a single full reply for the prompt.
func (g *GeminiModel) Complete(ctx context.Context, apiKey string, prompt string) (string, error) {
	client, err := g.newClient(ctx, apiKey)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// CompleteStreaming streams the reply chunk by chunk. The returned channel is
// closed when generation finishes or the stream fails mid-flight; a mid-stream
// failure is logged and surfaces to the caller only as a short stream.
func (g *GeminiModel) CompleteStreaming(ctx context.Context, apiKey string, prompt string, systemInstruction string) (<-chan string, error) {
	client, err := g.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var config *genai.GenerateContentConfig
	if systemInstruction != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	stream := client.Models.GenerateContentStream(ctx, g.model, contents, config)

	chunks := make(chan string)
	go func() {
		defer close(chunks)
		for resp, err := range stream {
			if err != nil {
				g.logger.Warn("gemini stream interrupted", zap.Error(err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case chunks <- text:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}
