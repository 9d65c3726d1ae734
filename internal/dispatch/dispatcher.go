// Package dispatch routes an endpoint-independent generation request to the
// backend registered for its model and hands the outcome to a Responder.
package dispatch

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"oaigate/internal/backend"
	"oaigate/pkg/types"
)

// Registry looks up and lists backends by model name. *registry.Registry
// implements it.
type Registry interface {
	Resolve(name string) (backend.Backend, error)
	Describe(name string) (types.Model, error)
	List() []types.Model
	Len() int
}

// Responder renders a dispatched request. req carries the resolved model
// name. Exactly one of its methods is called per successful dispatch.
type Responder interface {
	Complete(req backend.Request, res *backend.Result) error
	// Stream consumes events until the channel closes or ctx is canceled.
	Stream(ctx context.Context, req backend.Request, events <-chan backend.StreamEvent) error
}

type Dispatcher struct {
	reg          Registry
	defaultModel string
	log          zerolog.Logger
}

// New builds a Dispatcher. defaultModel serves requests that name no model.
func New(reg Registry, defaultModel string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, defaultModel: defaultModel, log: log}
}

// ListModels returns the registry listing in registration order.
func (d *Dispatcher) ListModels() []types.Model { return d.reg.List() }

// DescribeModel returns the listing entry for one model name.
func (d *Dispatcher) DescribeModel(name string) (types.Model, error) { return d.reg.Describe(name) }

// Ready reports whether at least one backend is registered.
func (d *Dispatcher) Ready() bool { return d.reg.Len() > 0 }

// Resolve maps a requested model name to its backend, applying the default
// when name is empty. The returned name is the one that was resolved.
func (d *Dispatcher) Resolve(name string) (string, backend.Backend, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = d.defaultModel
		if name == "" {
			return "", nil, backend.ErrUnknownModel("")
		}
	}
	b, err := d.reg.Resolve(name)
	if err != nil {
		return name, nil, err
	}
	return name, b, nil
}

// Dispatch resolves req.Model and runs the streaming or non-streaming path.
// Resolution and backend validation failures are returned before the
// Responder is touched. On the streaming path the backend runs under a child
// context that is canceled when Dispatch returns, so a producer never
// outlives its consumer.
func (d *Dispatcher) Dispatch(ctx context.Context, req backend.Request, r Responder) error {
	name, b, err := d.Resolve(req.Model)
	if err != nil {
		return err
	}
	req.Model = name
	log := d.log.With().Str("model", name).Bool("stream", req.Stream).Logger()

	if !req.Stream {
		res, err := b.Generate(ctx, req)
		if err != nil {
			log.Debug().Err(err).Msg("generate failed")
			return err
		}
		return r.Complete(req, res)
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := b.GenerateStream(sctx, req)
	if err != nil {
		log.Debug().Err(err).Msg("stream rejected")
		return err
	}
	log.Debug().Msg("stream started")
	return r.Stream(sctx, req, events)
}
