package registry

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"oaigate/internal/backend"
	"oaigate/internal/backend/anthropic"
	"oaigate/internal/backend/lorem"
	"oaigate/internal/backend/mock"
	"oaigate/internal/backend/openai"
	"oaigate/internal/config"
)

// Build constructs one backend per configured entry, registers them in
// order and seals the registry. lookup resolves api_key_env references and
// is usually os.LookupEnv.
func Build(cfgs []config.BackendConfig, lookup func(string) (string, bool), log zerolog.Logger) (*Registry, error) {
	r := New()
	for _, c := range cfgs {
		b, err := newBackend(c, lookup, log)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", c.Name, err)
		}
		if err := r.Register(c.Name, b); err != nil {
			return nil, err
		}
		log.Info().Str("model", c.Name).Str("type", c.Type).Msg("registered backend")
	}
	r.Seal()
	return r, nil
}

func newBackend(c config.BackendConfig, lookup func(string) (string, bool), log zerolog.Logger) (backend.Backend, error) {
	var delay time.Duration
	if c.StreamDelayMS != nil {
		delay = time.Duration(*c.StreamDelayMS) * time.Millisecond
	}
	switch c.Type {
	case config.TypeMock:
		return mock.New(mock.Options{
			OwnedBy:          c.OwnedBy,
			StreamDelay:      delay,
			MaxContextTokens: c.MaxContextTokens,
			Logger:           log,
		}), nil
	case config.TypeLorem:
		return lorem.New(lorem.Options{
			ID:          c.Name,
			OwnedBy:     c.OwnedBy,
			Words:       c.Words,
			StreamDelay: delay,
			Logger:      log,
		}), nil
	case config.TypeOpenAI:
		return openai.New(openai.Options{
			ID:            c.Name,
			OwnedBy:       c.OwnedBy,
			BaseURL:       c.BaseURL,
			APIKey:        c.APIKey(lookup),
			UpstreamModel: c.UpstreamModel,
			MaxTokens:     c.MaxTokens,
			Logger:        log,
		})
	case config.TypeAnthropic:
		return anthropic.New(anthropic.Options{
			ID:            c.Name,
			OwnedBy:       c.OwnedBy,
			BaseURL:       c.BaseURL,
			APIKey:        c.APIKey(lookup),
			UpstreamModel: c.UpstreamModel,
			MaxTokens:     c.MaxTokens,
			Logger:        log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", c.Type)
	}
}
