package llm

import "context"

type Provider interface {
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	// GenerateJSON returns a single JSON document for the prompt.
	GenerateJSON(ctx context.Context, prompt string) ([]byte, error)
	Close() error
}
