// Package backend defines the contract every text-generation backend
// implements, plus the request/result types that flow through it.
//
// Concrete backends live in subpackages (mock, lorem, openai, anthropic) and
// are registered under model names in internal/registry at startup.
package backend

import (
	"context"
	"strings"
)

// Backend is the capability set the dispatcher relies on.
//
// Implementations must be safe for concurrent use: the same instance serves
// every request routed to its model name.
type Backend interface {
	// Generate produces the complete answer for req. It either returns a full
	// Result or an error; it never returns partial content.
	Generate(ctx context.Context, req Request) (*Result, error)

	// GenerateStream validates req and then produces the answer incrementally.
	// Validation failures are returned directly, before any event is sent.
	// The returned channel yields chunks in emission order, ends with exactly
	// one terminal chunk and is then closed. When ctx is canceled the producer
	// stops and closes the channel without reporting an error.
	GenerateStream(ctx context.Context, req Request) (<-chan StreamEvent, error)

	// Identity returns static metadata for model listings.
	Identity() Identity
}

// Identity is the static metadata a backend reports about itself.
type Identity struct {
	ID      string
	OwnedBy string
	Created int64
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
	Name    string
}

// Request is the endpoint-independent generation request. Exactly one of
// Prompt or Messages is meaningful; IsChat reports which.
type Request struct {
	Model    string
	Prompt   string
	Messages []Message
	Stream   bool

	// MaxTokens is the completion budget; 0 means the backend default.
	MaxTokens        int
	Temperature      *float64
	TopP             *float64
	N                int
	Stop             []string
	PresencePenalty  *float64
	FrequencyPenalty *float64
	User             string
}

// IsChat reports whether the request carries a message sequence.
func (r Request) IsChat() bool { return r.Messages != nil }

// LastUserContent returns the content of the final message when it was sent
// by the user, and false otherwise.
func (r Request) LastUserContent() (string, bool) {
	if len(r.Messages) == 0 {
		return "", false
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return "", false
	}
	return last.Content, true
}

// Roles accepted in chat requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
	RoleTool      = "tool"
)

// FinishReason explains why generation ended. The zero value means the
// generation has not finished yet.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
)

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage with TotalTokens filled in.
func NewUsage(prompt, completion int) Usage {
	return Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
}

// Result is a fully materialized generation.
type Result struct {
	Content      string
	FinishReason FinishReason
	Usage        Usage
}

// Chunk is one increment of a streamed generation.
type Chunk struct {
	Delta string
	// FinishReason is set only on the terminal chunk.
	FinishReason FinishReason
	// Usage is set only on the terminal chunk.
	Usage *Usage
}

// Terminal reports whether c ends the stream.
func (c Chunk) Terminal() bool { return c.FinishReason != "" }

// StreamEvent carries either a chunk or a mid-stream failure. A failure is
// always the last event on the channel.
type StreamEvent struct {
	Chunk Chunk
	Err   error
}

// CountTokens approximates a token count by whitespace-separated words.
func CountTokens(s string) int { return len(strings.Fields(s)) }

// CountMessageTokens sums CountTokens over every message body.
func CountMessageTokens(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		n += CountTokens(m.Content)
	}
	return n
}

// PromptTokens counts the input tokens of req, whichever input form it uses.
func PromptTokens(req Request) int {
	if req.IsChat() {
		return CountMessageTokens(req.Messages)
	}
	return CountTokens(req.Prompt)
}
