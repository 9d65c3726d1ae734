// Package anthropic forwards generation to the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	ant "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"oaigate/internal/backend"
)

const (
	defaultOwner     = "anthropic"
	defaultMaxTokens = 1024
	// the Messages API accepts a narrower temperature range than the OpenAI API
	maxTemperature = 1.0
)

// Options configures a Backend.
type Options struct {
	ID            string
	OwnedBy       string
	Created       int64
	BaseURL       string
	APIKey        string
	UpstreamModel string
	// MaxTokens is sent when a request leaves max_tokens unset. The Messages
	// API requires a budget on every call.
	MaxTokens  int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Backend struct {
	client    ant.Client
	id        string
	owner     string
	created   int64
	model     string
	maxTokens int
	log       zerolog.Logger
}

var _ backend.Backend = (*Backend)(nil)

func New(opts Options) *Backend {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	b := &Backend{
		client:    ant.NewClient(reqOpts...),
		id:        opts.ID,
		owner:     opts.OwnedBy,
		created:   opts.Created,
		model:     opts.UpstreamModel,
		maxTokens: opts.MaxTokens,
		log:       opts.Logger.With().Str("backend", "anthropic").Logger(),
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
	if b.maxTokens <= 0 {
		b.maxTokens = defaultMaxTokens
	}
	return b
}

func (b *Backend) Identity() backend.Identity {
	return backend.Identity{ID: b.id, OwnedBy: b.owner, Created: b.created}
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	params, err := b.params(req)
	if err != nil {
		return nil, err
	}
	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(ant.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	res := &backend.Result{
		Content:      text.String(),
		FinishReason: finishReason(msg.StopReason),
		Usage:        backend.NewUsage(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)),
	}
	b.log.Debug().Str("model", req.Model).Str("stop_reason", string(msg.StopReason)).Msg("generated")
	return res, nil
}

// GenerateStream waits for the first upstream event before handing out the
// channel so that a rejected request is reported as an error.
func (b *Backend) GenerateStream(ctx context.Context, req backend.Request) (<-chan backend.StreamEvent, error) {
	params, err := b.params(req)
	if err != nil {
		return nil, err
	}
	stream := b.client.Messages.NewStreaming(ctx, params)
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

		msg := ant.Message{}
		stopped := false
		for ok := true; ok; ok = stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				backend.Send(ctx, out, backend.StreamEvent{Err: fmt.Errorf("anthropic backend: accumulate: %w", err)})
				return
			}
			switch e := event.AsAny().(type) {
			case ant.ContentBlockDeltaEvent:
				if e.Delta.Type != "text_delta" || e.Delta.Text == "" {
					continue
				}
				if !backend.Send(ctx, out, backend.StreamEvent{Chunk: backend.Chunk{Delta: e.Delta.Text}}) {
					return
				}
			case ant.MessageStopEvent:
				stopped = true
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			b.log.Warn().Err(err).Str("model", req.Model).Msg("upstream stream failed")
			backend.Send(ctx, out, backend.StreamEvent{Err: fmt.Errorf("anthropic backend: %w", err)})
			return
		}
		if !stopped {
			backend.Send(ctx, out, backend.StreamEvent{Err: backend.ErrIncompleteStream})
			return
		}
		u := backend.NewUsage(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens))
		backend.Send(ctx, out, backend.StreamEvent{Chunk: backend.Chunk{FinishReason: finishReason(msg.StopReason), Usage: &u}})
	}()
	return out, nil
}

func (b *Backend) params(req backend.Request) (ant.MessageNewParams, error) {
	if req.Temperature != nil && *req.Temperature > maxTemperature {
		return ant.MessageNewParams{}, backend.ErrInvalidParam("temperature",
			"temperature %.2f is above the maximum of %.1f supported by this model", *req.Temperature, maxTemperature)
	}
	msgs, system := convert(req)
	if len(msgs) == 0 {
		return ant.MessageNewParams{}, backend.ErrInvalidParam("messages", "at least one non-system message is required")
	}
	maxTokens := b.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	p := ant.MessageNewParams{
		Model:     ant.Model(b.model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system != "" {
		p.System = []ant.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		p.Temperature = ant.Float(*req.Temperature)
	}
	if req.TopP != nil {
		p.TopP = ant.Float(*req.TopP)
	}
	if len(req.Stop) > 0 {
		p.StopSequences = req.Stop
	}
	return p, nil
}

// convert splits system messages into the system prompt and maps the rest
// onto user and assistant turns.
func convert(req backend.Request) ([]ant.MessageParam, string) {
	if !req.IsChat() {
		return []ant.MessageParam{ant.NewUserMessage(ant.NewTextBlock(req.Prompt))}, ""
	}
	var system []string
	msgs := make([]ant.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case backend.RoleSystem:
			system = append(system, m.Content)
		case backend.RoleAssistant:
			msgs = append(msgs, ant.NewAssistantMessage(ant.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, ant.NewUserMessage(ant.NewTextBlock(m.Content)))
		}
	}
	return msgs, strings.Join(system, "\n\n")
}

func finishReason(r ant.StopReason) backend.FinishReason {
	if r == ant.StopReasonMaxTokens {
		return backend.FinishLength
	}
	return backend.FinishStop
}

func classify(err error) error {
	var apiErr *ant.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
		msg := gjson.Get(apiErr.RawJSON(), "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("upstream rejected the request with status %d", apiErr.StatusCode)
		}
		return backend.ErrInvalidParam("", "%s", msg)
	}
	return fmt.Errorf("anthropic backend: %w", err)
}
