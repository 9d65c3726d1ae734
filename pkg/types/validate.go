package types

import "fmt"

// DefaultCompletionMaxTokens applies when a completions request omits
// max_tokens.
const DefaultCompletionMaxTokens = 16

// RequestError is a schema or range violation in a request body.
type RequestError struct {
	Param   string
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func invalid(param, format string, args ...any) *RequestError {
	return &RequestError{Param: param, Message: fmt.Sprintf(format, args...)}
}

var validRoles = map[string]bool{
	"system":    true,
	"user":      true,
	"assistant": true,
	"function":  true,
	"tool":      true,
}

type sampling struct {
	temperature, topP, presence, frequency *float64
	n, maxTokens                           *int
}

func (s sampling) validate() *RequestError {
	if v := s.temperature; v != nil && (*v < 0 || *v > 2) {
		return invalid("temperature", "temperature must be between 0 and 2, got %g", *v)
	}
	if v := s.topP; v != nil && (*v < 0 || *v > 1) {
		return invalid("top_p", "top_p must be between 0 and 1, got %g", *v)
	}
	if v := s.n; v != nil && *v < 1 {
		return invalid("n", "n must be at least 1, got %d", *v)
	}
	if v := s.maxTokens; v != nil && *v < 1 {
		return invalid("max_tokens", "max_tokens must be at least 1, got %d", *v)
	}
	if v := s.presence; v != nil && (*v < -2 || *v > 2) {
		return invalid("presence_penalty", "presence_penalty must be between -2 and 2, got %g", *v)
	}
	if v := s.frequency; v != nil && (*v < -2 || *v > 2) {
		return invalid("frequency_penalty", "frequency_penalty must be between -2 and 2, got %g", *v)
	}
	return nil
}

// Validate checks ranges and input shape. It returns nil or a *RequestError.
func (r *CompletionRequest) Validate() error {
	if r.Prompt.TokenIDs {
		return invalid("prompt", "Token lists as prompts are not supported")
	}
	s := sampling{r.Temperature, r.TopP, r.PresencePenalty, r.FrequencyPenalty, r.N, r.MaxTokens}
	if err := s.validate(); err != nil {
		return err
	}
	if r.BestOf != nil {
		if *r.BestOf < 1 {
			return invalid("best_of", "best_of must be at least 1, got %d", *r.BestOf)
		}
		if r.N != nil && *r.BestOf < *r.N {
			return invalid("best_of", "best_of must be greater than or equal to n")
		}
	}
	return nil
}

// EffectiveMaxTokens returns max_tokens or the completions default.
func (r *CompletionRequest) EffectiveMaxTokens() int {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return DefaultCompletionMaxTokens
}

// Validate checks ranges, roles and that messages is non-empty.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return invalid("messages", "messages must not be empty")
	}
	for i, m := range r.Messages {
		if !validRoles[m.Role] {
			return invalid(fmt.Sprintf("messages[%d].role", i),
				"role must be one of system, user, assistant, function, tool; got %q", m.Role)
		}
	}
	s := sampling{r.Temperature, r.TopP, r.PresencePenalty, r.FrequencyPenalty, r.N, r.MaxTokens}
	if err := s.validate(); err != nil {
		return err
	}
	return nil
}
