// Package openai forwards generation to an upstream OpenAI-compatible server
// through the chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"oaigate/internal/backend"
)

const defaultOwner = "openai-compatible"

// Options configures a Backend. BaseURL is required.
type Options struct {
	// ID is the name reported in listings; UpstreamModel defaults to it.
	ID            string
	OwnedBy       string
	Created       int64
	BaseURL       string
	APIKey        string
	UpstreamModel string
	// MaxTokens is sent when a request leaves max_tokens unset. 0 lets the
	// upstream decide.
	MaxTokens  int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Backend proxies requests to an OpenAI-compatible upstream.
type Backend struct {
	client    oai.Client
	id        string
	owner     string
	created   int64
	model     string
	maxTokens int
	log       zerolog.Logger
}

var _ backend.Backend = (*Backend)(nil)

func New(opts Options) (*Backend, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("openai backend: base_url is required")
	}
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	b := &Backend{
		client:    oai.NewClient(reqOpts...),
		id:        opts.ID,
		owner:     opts.OwnedBy,
		created:   opts.Created,
		model:     opts.UpstreamModel,
		maxTokens: opts.MaxTokens,
		log:       opts.Logger.With().Str("backend", "openai").Str("upstream", base).Logger(),
	}
	if b.owner == "" {
		b.owner = defaultOwner
	}
	if b.created == 0 {
		b.created = time.Now().Unix()
	}
	if b.model == "" {
		b.model = b.id
	}
	return b, nil
}

func (b *Backend) Identity() backend.Identity {
	return backend.Identity{ID: b.id, OwnedBy: b.owner, Created: b.created}
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	resp, err := b.client.Chat.Completions.New(ctx, b.params(req))
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai backend: upstream returned no choices")
	}
	choice := resp.Choices[0]
	res := &backend.Result{
		Content:      choice.Message.Content,
		FinishReason: finishReason(choice.FinishReason),
		Usage:        usage(resp.Usage, req, choice.Message.Content),
	}
	b.log.Debug().Str("model", req.Model).Str("upstream_model", b.model).Int("completion_tokens", res.Usage.CompletionTokens).Msg("generated")
	return res, nil
}

// GenerateStream opens the upstream stream and waits for its first event so
// that a rejected request surfaces as an error instead of a broken stream.
func (b *Backend) GenerateStream(ctx context.Context, req backend.Request) (<-chan backend.StreamEvent, error) {
	params := b.params(req)
	params.StreamOptions = oai.ChatCompletionStreamOptionsParam{IncludeUsage: oai.Bool(true)}
	stream := b.client.Chat.Completions.NewStreaming(ctx, params)
	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err == nil {
			err = backend.ErrIncompleteStream
		}
		return nil, classify(err)
	}

	out := make(chan backend.StreamEvent)
	go func() {
		defer close(out)
		defer stream.Close()

		var (
			text   strings.Builder
			finish string
			up     oai.CompletionUsage
		)
		for ok := true; ok; ok = stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				up = chunk.Usage
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			c := chunk.Choices[0]
			if c.FinishReason != "" {
				finish = c.FinishReason
			}
			if c.Delta.Content == "" {
				continue
			}
			text.WriteString(c.Delta.Content)
			if !backend.Send(ctx, out, backend.StreamEvent{Chunk: backend.Chunk{Delta: c.Delta.Content}}) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			b.log.Warn().Err(err).Str("model", req.Model).Msg("upstream stream failed")
			backend.Send(ctx, out, backend.StreamEvent{Err: fmt.Errorf("openai backend: %w", err)})
			return
		}
		if finish == "" {
			backend.Send(ctx, out, backend.StreamEvent{Err: backend.ErrIncompleteStream})
			return
		}
		u := usage(up, req, text.String())
		backend.Send(ctx, out, backend.StreamEvent{Chunk: backend.Chunk{FinishReason: finishReason(finish), Usage: &u}})
	}()
	return out, nil
}

func (b *Backend) params(req backend.Request) oai.ChatCompletionNewParams {
	p := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(b.model),
		Messages: messages(req),
	}
	if n := req.MaxTokens; n > 0 {
		p.MaxTokens = oai.Int(int64(n))
	} else if b.maxTokens > 0 {
		p.MaxTokens = oai.Int(int64(b.maxTokens))
	}
	if req.Temperature != nil {
		p.Temperature = oai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		p.TopP = oai.Float(*req.TopP)
	}
	if req.PresencePenalty != nil {
		p.PresencePenalty = oai.Float(*req.PresencePenalty)
	}
	if req.FrequencyPenalty != nil {
		p.FrequencyPenalty = oai.Float(*req.FrequencyPenalty)
	}
	if len(req.Stop) > 0 {
		p.Stop = oai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Stop}
	}
	if req.User != "" {
		p.User = oai.String(req.User)
	}
	return p
}

// messages maps the request onto chat messages. A text prompt becomes a
// single user turn; roles the upstream has no plain-text form for are sent
// as user turns.
func messages(req backend.Request) []oai.ChatCompletionMessageParamUnion {
	if !req.IsChat() {
		return []oai.ChatCompletionMessageParamUnion{oai.UserMessage(req.Prompt)}
	}
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case backend.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case backend.RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}

func finishReason(s string) backend.FinishReason {
	if s == "length" {
		return backend.FinishLength
	}
	return backend.FinishStop
}

// usage prefers upstream accounting and falls back to word counts when the
// upstream reports none.
func usage(u oai.CompletionUsage, req backend.Request, text string) backend.Usage {
	if u.TotalTokens > 0 {
		return backend.NewUsage(int(u.PromptTokens), int(u.CompletionTokens))
	}
	return backend.NewUsage(backend.PromptTokens(req), backend.CountTokens(text))
}

// classify turns upstream 4xx rejections into backend request errors. Other
// failures pass through and are reported as internal errors.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
		msg, param := apiErr.Message, apiErr.Param
		// some upstreams only fill the {"error":{...}} envelope
		if raw := apiErr.RawJSON(); raw != "" {
			if msg == "" {
				msg = gjson.Get(raw, "error.message").String()
			}
			if param == "" {
				param = gjson.Get(raw, "error.param").String()
			}
		}
		if msg == "" {
			msg = fmt.Sprintf("upstream rejected the request with status %d", apiErr.StatusCode)
		}
		return backend.ErrInvalidParam(param, "%s", msg)
	}
	return fmt.Errorf("openai backend: %w", err)
}
