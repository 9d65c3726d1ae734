package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"oaigate/internal/assembler"
	"oaigate/internal/backend"
)

// doneSentinel ends every successful stream.
const doneSentinel = "[DONE]"

// errStreamAborted marks a stream that failed after its first byte was
// written. The connection is dropped instead of reporting an error.
var errStreamAborted = errors.New("stream aborted")

// responder renders dispatch results onto an HTTP response: JSON for the
// non-streaming path, Server-Sent Events for the streaming one.
type responder struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	kind  assembler.Kind
	rl    *reqLog
	model string
	// started is set once SSE headers are on the wire.
	started bool
	out     io.Writer
}

func newResponder(w http.ResponseWriter, kind assembler.Kind, rl *reqLog) *responder {
	out := io.Writer(w)
	if rl.lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{log: rl.log})
	}
	return &responder{w: w, rc: http.NewResponseController(w), kind: kind, rl: rl, out: out}
}

func (s *responder) Complete(req backend.Request, res *backend.Result) error {
	s.model = req.Model
	writeJSON(s.w, http.StatusOK, assembler.New(s.kind, req.Model).Complete(res))
	return nil
}

// Stream writes one SSE frame per chunk and the [DONE] sentinel after the
// terminal chunk. Headers are sent with the first frame, so a failure before
// any chunk still leaves the response free for a JSON error.
func (s *responder) Stream(ctx context.Context, req backend.Request, events <-chan backend.StreamEvent) error {
	s.model = req.Model
	a := assembler.New(s.kind, req.Model)
	terminal := false
	for {
		select {
		case <-ctx.Done():
			if s.started {
				observeAbort(abortReason(ctx))
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if !terminal {
					return s.fail(backend.ErrIncompleteStream)
				}
				if err := s.frame(doneSentinel); err != nil {
					observeAbort(abortWriteError)
					return err
				}
				return nil
			}
			if ev.Err != nil {
				return s.fail(ev.Err)
			}
			// nothing follows the terminal chunk but [DONE]
			if terminal {
				continue
			}
			b, err := json.Marshal(a.Chunk(ev.Chunk))
			if err != nil {
				return s.fail(err)
			}
			if err := s.frame(string(b)); err != nil {
				observeAbort(abortWriteError)
				return err
			}
			streamChunksTotal.WithLabelValues(req.Model).Inc()
			terminal = ev.Chunk.Terminal()
		}
	}
}

// abortReason labels a stream cut by its context.
func abortReason(ctx context.Context) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return abortTimeout
	case serverBaseCtx.Err() != nil:
		return abortShutdown
	default:
		return abortClientDisconnect
	}
}

// fail reports a backend failure. Before the first frame it is an ordinary
// error; afterwards the stream can only be cut.
func (s *responder) fail(err error) error {
	if !s.started {
		return err
	}
	observeAbort(abortBackendError)
	s.rl.log.Error().Err(err).Str("model", s.model).Msg("stream aborted by backend failure")
	return fmt.Errorf("%w: %v", errStreamAborted, err)
}

func (s *responder) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *responder) frame(data string) error {
	if !s.started {
		s.start()
	}
	if _, err := fmt.Fprintf(s.out, "data: %s\n\n", data); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
