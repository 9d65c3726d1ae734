// Package assembler turns backend results and chunks into OpenAI wire
// envelopes. One Assembler serves one response: every envelope it produces
// shares the same id, created timestamp and model.
package assembler

import (
	"time"

	"github.com/google/uuid"

	"oaigate/internal/backend"
	"oaigate/pkg/types"
)

// Kind selects the endpoint family an Assembler produces envelopes for.
type Kind int

const (
	KindCompletion Kind = iota
	KindChat
)

func (k Kind) String() string {
	if k == KindChat {
		return "chat"
	}
	return "completion"
}

// id prefixes per endpoint family.
const (
	completionPrefix = "cmpl-"
	chatPrefix       = "chatcmpl-"
)

var (
	newID = uuid.NewString
	now   = time.Now
)

type Assembler struct {
	kind    Kind
	id      string
	created int64
	model   string
	sent    bool
}

// New stamps a fresh response identity. model is echoed as requested.
func New(kind Kind, model string) *Assembler {
	prefix := completionPrefix
	if kind == KindChat {
		prefix = chatPrefix
	}
	return &Assembler{kind: kind, id: prefix + newID(), created: now().Unix(), model: model}
}

func (a *Assembler) ID() string     { return a.id }
func (a *Assembler) Kind() Kind     { return a.kind }
func (a *Assembler) Model() string  { return a.model }
func (a *Assembler) Created() int64 { return a.created }

// Complete wraps a full result in a single-choice response envelope.
func (a *Assembler) Complete(res *backend.Result) any {
	finish := string(res.FinishReason)
	usage := wireUsage(res.Usage)
	if a.kind == KindChat {
		return types.ChatCompletionResponse{
			ID:      a.id,
			Object:  "chat.completion",
			Created: a.created,
			Model:   a.model,
			Choices: []types.ChatChoice{{
				Index:        0,
				Message:      types.ChatMessage{Role: backend.RoleAssistant, Content: res.Content},
				FinishReason: &finish,
			}},
			Usage: &usage,
		}
	}
	return types.CompletionResponse{
		ID:      a.id,
		Object:  "text_completion",
		Created: a.created,
		Model:   a.model,
		Choices: []types.CompletionChoice{{Text: res.Content, Index: 0, FinishReason: &finish}},
		Usage:   &usage,
	}
}

// Chunk wraps one streamed chunk. finish_reason and usage appear only on the
// terminal chunk. The first chat chunk also announces the assistant role.
func (a *Assembler) Chunk(c backend.Chunk) any {
	var finish *string
	var usage *types.Usage
	if c.Terminal() {
		f := string(c.FinishReason)
		finish = &f
		if c.Usage != nil {
			u := wireUsage(*c.Usage)
			usage = &u
		}
	}
	first := !a.sent
	a.sent = true
	if a.kind == KindChat {
		delta := types.ChatDelta{Content: c.Delta}
		if first {
			delta.Role = backend.RoleAssistant
		}
		return types.ChatCompletionChunk{
			ID:      a.id,
			Object:  "chat.completion.chunk",
			Created: a.created,
			Model:   a.model,
			Choices: []types.ChatChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
			Usage:   usage,
		}
	}
	return types.CompletionResponse{
		ID:      a.id,
		Object:  "text_completion",
		Created: a.created,
		Model:   a.model,
		Choices: []types.CompletionChoice{{Text: c.Delta, Index: 0, FinishReason: finish}},
		Usage:   usage,
	}
}

func wireUsage(u backend.Usage) types.Usage {
	return types.Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}
