package llm

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message. Extraction sends exactly two: the fixed
// system prompt and the user utterance with its reference date.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries one extraction call. JSONMode asks the vendor
// to constrain output to a single JSON object; Temperature stays near zero
// so repeated calls over the same utterance produce the same fields.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the completion text. The pipeline validates and
// coerces it at the boundary; nothing downstream consumes vendor metadata.
type CompletionResponse struct {
	Content string
}
