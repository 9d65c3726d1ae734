package e2e

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"oaigate/internal/backend"
	"oaigate/internal/dispatch"
	"oaigate/internal/httpapi"
	"oaigate/internal/registry"
)

type named struct {
	name string
	b    backend.Backend
}

// newGateway wires a sealed registry, a dispatcher and the HTTP mux behind an
// httptest server.
func newGateway(t *testing.T, defaultModel string, backends ...named) *httptest.Server {
	t.Helper()
	reg := registry.New()
	for _, n := range backends {
		if err := reg.Register(n.name, n.b); err != nil {
			t.Fatalf("register %s: %v", n.name, err)
		}
	}
	reg.Seal()
	d := dispatch.New(reg, defaultModel, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(d))
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// sseFrames returns the data payloads of an SSE body in order.
func sseFrames(t *testing.T, body []byte) []string {
	t.Helper()
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			t.Fatalf("unexpected SSE line %q", line)
		}
		out = append(out, strings.TrimPrefix(line, "data: "))
	}
	return out
}

// countingBackend records how often it is invoked.
type countingBackend struct {
	calls atomic.Int32
}

func (c *countingBackend) Identity() backend.Identity {
	return backend.Identity{ID: "counting", OwnedBy: "tests"}
}

func (c *countingBackend) Generate(context.Context, backend.Request) (*backend.Result, error) {
	c.calls.Add(1)
	return &backend.Result{Content: "x", FinishReason: backend.FinishStop}, nil
}

func (c *countingBackend) GenerateStream(ctx context.Context, req backend.Request) (<-chan backend.StreamEvent, error) {
	c.calls.Add(1)
	return backend.StreamText(ctx, "x", 0, backend.FinishStop, backend.NewUsage(1, 1)), nil
}

// endlessBackend streams until its consumer goes away and then reports the
// cancellation on done.
type endlessBackend struct {
	done chan struct{}
}

func (e *endlessBackend) Identity() backend.Identity { return backend.Identity{ID: "endless"} }

func (e *endlessBackend) Generate(ctx context.Context, _ backend.Request) (*backend.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (e *endlessBackend) GenerateStream(ctx context.Context, _ backend.Request) (<-chan backend.StreamEvent, error) {
	out := make(chan backend.StreamEvent)
	go func() {
		defer close(out)
		defer close(e.done)
		for backend.Send(ctx, out, backend.StreamEvent{Chunk: backend.Chunk{Delta: "tick "}}) {
		}
	}()
	return out, nil
}

// brokenBackend emits a few chunks and then fails.
type brokenBackend struct{}

func (brokenBackend) Identity() backend.Identity { return backend.Identity{ID: "broken"} }

func (brokenBackend) Generate(context.Context, backend.Request) (*backend.Result, error) {
	return nil, io.ErrUnexpectedEOF
}

func (brokenBackend) GenerateStream(ctx context.Context, _ backend.Request) (<-chan backend.StreamEvent, error) {
	out := make(chan backend.StreamEvent)
	go func() {
		defer close(out)
		for _, w := range []string{"partial ", "answer "} {
			if !backend.Send(ctx, out, backend.StreamEvent{Chunk: backend.Chunk{Delta: w}}) {
				return
			}
		}
		backend.Send(ctx, out, backend.StreamEvent{Err: io.ErrUnexpectedEOF})
	}()
	return out, nil
}
