package llm

import "context"

// Provider abstracts the completion backend the extractor talks to. The two
// implementations (OpenAI and OpenRouter) share one OpenAI-compatible wire
// format; the pipeline never depends on which vendor served a call.
type Provider interface {
	// Complete issues one completion call and returns its output.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the vendor, for configuration and logs.
	Name() string
}
