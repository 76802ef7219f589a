package repositories

import "context"

// LanguageModel abstracts any chat/LLM provider
type LanguageModel interface {
	// Complete takes a prompt and returns the model's full reply.
	Complete(ctx context.Context, apiKey string, prompt string) (string, error)

	// CompleteStreaming generates a reply incrementally. The returned
	// channel yields text chunks in order and is closed when the stream
	// completes or fails; a mid-stream failure simply ends the channel so
	// callers keep whatever was produced.
	CompleteStreaming(ctx context.Context, apiKey string, prompt string, systemInstruction string) (<-chan string, error)
}
