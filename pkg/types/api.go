package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Prompt is the completions "prompt" field. Clients may send a string, a
// list of strings (only the first is used) or token id lists, which are
// recognized so they can be rejected with a precise message.
type Prompt struct {
	Text string
	// TokenIDs is set when the client sent token ids instead of text.
	TokenIDs bool
}

func (p *Prompt) UnmarshalJSON(b []byte) error {
	*p = Prompt{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &p.Text)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return errors.New("prompt must be a string or an array")
	}
	if len(items) == 0 {
		return nil
	}
	var strs []string
	if err := json.Unmarshal(b, &strs); err == nil {
		p.Text = strs[0]
		return nil
	}
	var ids []int
	if err := json.Unmarshal(b, &ids); err == nil {
		p.TokenIDs = true
		return nil
	}
	var nested [][]int
	if err := json.Unmarshal(b, &nested); err == nil {
		p.TokenIDs = true
		return nil
	}
	return errors.New("prompt array elements must all be strings or all be token ids")
}

func (p Prompt) MarshalJSON() ([]byte, error) { return json.Marshal(p.Text) }

// StopList is the "stop" field: a single string or a list of strings.
type StopList []string

func (s *StopList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StopList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("stop must be a string or an array of strings")
	}
	*s = many
	return nil
}

// CompletionRequest is the body of POST /v1/completions.
type CompletionRequest struct {
	// Model name; the configured default is used when empty.
	// example: mock-gpt
	Model string `json:"model" example:"mock-gpt"`
	// Text to complete. A list of strings uses its first element.
	// example: Hello, world!
	Prompt Prompt `json:"prompt" swaggertype:"string" example:"Hello, world!"`
	Suffix string `json:"suffix,omitempty"`
	// Completion budget in tokens. Defaults to 16.
	// example: 50
	MaxTokens *int `json:"max_tokens,omitempty" example:"50"`
	// example: 0.7
	Temperature      *float64           `json:"temperature,omitempty" example:"0.7"`
	TopP             *float64           `json:"top_p,omitempty"`
	N                *int               `json:"n,omitempty"`
	Stream           bool               `json:"stream,omitempty"`
	Logprobs         *int               `json:"logprobs,omitempty"`
	Echo             bool               `json:"echo,omitempty"`
	Stop             StopList           `json:"stop,omitempty" swaggertype:"array,string"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	BestOf           *int               `json:"best_of,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	// One of system, user, assistant, function, tool.
	// example: user
	Role string `json:"role" example:"user"`
	// example: Hello, how are you?
	Content string `json:"content" example:"Hello, how are you?"`
	Name    string `json:"name,omitempty"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// example: mock-gpt
	Model    string        `json:"model" example:"mock-gpt"`
	Messages []ChatMessage `json:"messages"`
	// example: 0.7
	Temperature      *float64           `json:"temperature,omitempty" example:"0.7"`
	TopP             *float64           `json:"top_p,omitempty"`
	N                *int               `json:"n,omitempty"`
	Stream           bool               `json:"stream,omitempty"`
	Stop             StopList           `json:"stop,omitempty" swaggertype:"array,string"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	// example: 2
	PromptTokens int `json:"prompt_tokens" example:"2"`
	// example: 8
	CompletionTokens int `json:"completion_tokens" example:"8"`
	// example: 10
	TotalTokens int `json:"total_tokens" example:"10"`
}

// CompletionChoice is one choice of a text completion or completion chunk.
type CompletionChoice struct {
	// example: This is a mock response to: Hello, world!
	Text     string `json:"text" example:"This is a mock response to: Hello, world!"`
	Index    int    `json:"index"`
	Logprobs *struct{} `json:"logprobs"`
	// stop or length; null on non-terminal chunks.
	// example: stop
	FinishReason *string `json:"finish_reason" example:"stop"`
}

// CompletionResponse is a text completion. Streamed chunks use the same
// shape with a partial Text and, except on the last chunk, no usage.
type CompletionResponse struct {
	// example: cmpl-2b9f5f64-3c4e-4a61-9d51-7f1a0e0c9b11
	ID string `json:"id" example:"cmpl-2b9f5f64-3c4e-4a61-9d51-7f1a0e0c9b11"`
	// example: text_completion
	Object string `json:"object" example:"text_completion"`
	// example: 1700000000
	Created int64              `json:"created" example:"1700000000"`
	Model   string             `json:"model" example:"mock-gpt"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// ChatChoice is one choice of a chat completion.
type ChatChoice struct {
	Index   int         `json:"index"`
	Message ChatMessage `json:"message"`
	// example: stop
	FinishReason *string `json:"finish_reason" example:"stop"`
}

// ChatCompletionResponse is a non-streamed chat completion.
type ChatCompletionResponse struct {
	// example: chatcmpl-2b9f5f64-3c4e-4a61-9d51-7f1a0e0c9b11
	ID string `json:"id" example:"chatcmpl-2b9f5f64-3c4e-4a61-9d51-7f1a0e0c9b11"`
	// example: chat.completion
	Object  string       `json:"object" example:"chat.completion"`
	Created int64        `json:"created"`
	Model   string       `json:"model" example:"mock-gpt"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// ChatDelta is the incremental content of a chat chunk.
type ChatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type ChatChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE frame of a streamed chat completion.
type ChatCompletionChunk struct {
	ID string `json:"id"`
	// example: chat.completion.chunk
	Object  string            `json:"object" example:"chat.completion.chunk"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *Usage            `json:"usage,omitempty"`
}

// ErrorBody is the inner object of an OpenAI error envelope.
type ErrorBody struct {
	// example: model 'gpt-5' not found
	Message string `json:"message" example:"model 'gpt-5' not found"`
	// example: invalid_request_error
	Type string `json:"type" example:"invalid_request_error"`
	// example: model
	Param *string `json:"param" example:"model"`
	// example: model_not_found
	Code *string `json:"code" example:"model_not_found"`
}

// ErrorResponse is the OpenAI-style error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error types used in ErrorBody.Type.
const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeServer         = "server_error"
)

// NewErrorResponse builds an envelope; empty param and code encode as null.
func NewErrorResponse(typ, message, param, code string) ErrorResponse {
	body := ErrorBody{Message: message, Type: typ}
	if param != "" {
		body.Param = &param
	}
	if code != "" {
		body.Code = &code
	}
	return ErrorResponse{Error: body}
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
}
