// Package lorem implements a backend that answers with lorem ipsum text.
// It is useful for exercising clients against long, varied streams without
// calling a real model.
package lorem

import (
	"context"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/rs/zerolog"

	"oaigate/internal/backend"
)

const (
	defaultID      = "lorem-1"
	defaultOwner   = "lorem-ipsum"
	defaultWords   = 64
	defaultCreated = int64(1672531200)
)

// Options configures a Backend. Zero values select the defaults.
type Options struct {
	ID      string
	OwnedBy string
	Created int64
	// Words is the answer length used when a request does not set max_tokens.
	Words       int
	StreamDelay time.Duration
	Logger      zerolog.Logger
}

// Backend generates lorem ipsum. Each call draws fresh text, so output is not
// deterministic across calls; within one call the streamed chunks always
// concatenate to the generated text.
type Backend struct {
	mu    sync.Mutex
	gen   *loremgen.Lorem
	id    string
	owner string
	ctime int64
	words int
	delay time.Duration
	log   zerolog.Logger
}

var _ backend.Backend = (*Backend)(nil)

func New(opts Options) *Backend {
	b := &Backend{
		gen:   loremgen.New(),
		id:    opts.ID,
		owner: opts.OwnedBy,
		ctime: opts.Created,
		words: opts.Words,
		delay: opts.StreamDelay,
		log:   opts.Logger.With().Str("backend", "lorem").Logger(),
	}
	if b.id == "" {
		b.id = defaultID
	}
	if b.owner == "" {
		b.owner = defaultOwner
	}
	if b.ctime == 0 {
		b.ctime = defaultCreated
	}
	if b.words <= 0 {
		b.words = defaultWords
	}
	if b.delay < 0 {
		b.delay = 0
	}
	return b
}

func (b *Backend) Identity() backend.Identity {
	return backend.Identity{ID: b.id, OwnedBy: b.owner, Created: b.ctime}
}

func (b *Backend) Generate(ctx context.Context, req backend.Request) (*backend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.compose(req), nil
}

func (b *Backend) GenerateStream(ctx context.Context, req backend.Request) (<-chan backend.StreamEvent, error) {
	res := b.compose(req)
	b.log.Debug().Str("model", req.Model).Int("words", res.Usage.CompletionTokens).Msg("stream start")
	return backend.StreamText(ctx, res.Content, b.delay, res.FinishReason, res.Usage), nil
}

// compose draws sentences until the word budget is met. A request-level
// max_tokens cuts the text mid-sentence and reports a length finish.
func (b *Backend) compose(req backend.Request) *backend.Result {
	target, finish := b.words, backend.FinishStop
	if req.MaxTokens > 0 {
		target, finish = req.MaxTokens, backend.FinishLength
	}

	var words []string
	b.mu.Lock()
	for len(words) < target {
		words = append(words, strings.Fields(b.gen.Sentence(5, 15))...)
	}
	b.mu.Unlock()

	if len(words) > target {
		words = words[:target]
	} else if req.MaxTokens > 0 {
		// the budget ended exactly on a sentence boundary
		finish = backend.FinishStop
	}
	text := strings.Join(words, " ")
	return &backend.Result{
		Content:      text,
		FinishReason: finish,
		Usage:        backend.NewUsage(backend.PromptTokens(req), len(words)),
	}
}
