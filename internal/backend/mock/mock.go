// Package mock implements a deterministic echo backend used for local
// development and tests.
package mock

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"oaigate/internal/backend"
)

// Defaults applied when the corresponding Options fields are unset.
const (
	defaultID               = "mock-gpt-1"
	defaultOwner            = "mock-organization"
	defaultMaxContextTokens = 4096
	greeting                = "I'm a mock AI assistant. How can I help you today?"
)

// defaultCreated is 2023-01-01T00:00:00Z.
const defaultCreated int64 = 1672531200

// Options configures a Backend. Zero values select the defaults; a zero
// StreamDelay streams without pausing between words.
type Options struct {
	ID               string
	OwnedBy          string
	Created          int64
	StreamDelay      time.Duration
	MaxContextTokens int
	Logger           zerolog.Logger
}

// Backend echoes the prompt (or the last user message) back to the caller.
type Backend struct {
	id               string
	ownedBy          string
	created          int64
	streamDelay      time.Duration
	maxContextTokens int
	log              zerolog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// New constructs a mock backend.
func New(opts Options) *Backend {
	b := &Backend{
		id:               opts.ID,
		ownedBy:          opts.OwnedBy,
		created:          opts.Created,
		streamDelay:      opts.StreamDelay,
		maxContextTokens: opts.MaxContextTokens,
		log:              opts.Logger.With().Str("backend", "mock").Logger(),
	}
	if b.id == "" {
		b.id = defaultID
	}
	if b.ownedBy == "" {
		b.ownedBy = defaultOwner
	}
	if b.created == 0 {
		b.created = defaultCreated
	}
	if b.streamDelay < 0 {
		b.streamDelay = 0
	}
	if b.maxContextTokens <= 0 {
		b.maxContextTokens = defaultMaxContextTokens
	}
	return b
}

func (b *Backend) Identity() backend.Identity {
	return backend.Identity{ID: b.id, OwnedBy: b.ownedBy, Created: b.created}
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	res, err := b.compose(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.log.Debug().Str("model", req.Model).Int("completion_tokens", res.Usage.CompletionTokens).Msg("generated")
	return res, nil
}

func (b *Backend) GenerateStream(ctx context.Context, req backend.Request) (<-chan backend.StreamEvent, error) {
	res, err := b.compose(req)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("model", req.Model).Dur("delay", b.streamDelay).Msg("stream start")
	return backend.StreamText(ctx, res.Content, b.streamDelay, res.FinishReason, res.Usage), nil
}

// compose is the single generation path shared by both contract methods.
func (b *Backend) compose(req backend.Request) (*backend.Result, error) {
	if req.MaxTokens > b.maxContextTokens {
		return nil, backend.ErrInvalidParam("max_tokens",
			"max_tokens %d exceeds the model's context window of %d tokens", req.MaxTokens, b.maxContextTokens)
	}
	text := reply(req)
	finish := backend.FinishStop
	if req.MaxTokens > 0 {
		if pieces := backend.SplitWords(text); len(pieces) > req.MaxTokens {
			text = strings.Join(pieces[:req.MaxTokens], "")
			finish = backend.FinishLength
		}
	}
	return &backend.Result{
		Content:      text,
		FinishReason: finish,
		Usage:        backend.NewUsage(backend.PromptTokens(req), backend.CountTokens(text)),
	}, nil
}

func reply(req backend.Request) string {
	if !req.IsChat() {
		return "This is a mock response to: " + req.Prompt
	}
	if content, ok := req.LastUserContent(); ok {
		return "This is a mock chat response to: " + content
	}
	return greeting
}
