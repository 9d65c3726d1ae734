package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"oaigate/internal/backend"
	"oaigate/internal/dispatch"
	"oaigate/pkg/types"
)

// mockService scripts dispatch outcomes without a registry.
type mockService struct {
	models      []types.Model
	ready       bool
	dispatchErr error
	result      *backend.Result
	events      []backend.StreamEvent
	last        backend.Request
}

func (m *mockService) ListModels() []types.Model { return append([]types.Model(nil), m.models...) }
func (m *mockService) Ready() bool               { return m.ready }

func (m *mockService) DescribeModel(name string) (types.Model, error) {
	for _, md := range m.models {
		if md.ID == name {
			return md, nil
		}
	}
	return types.Model{}, backend.ErrUnknownModel(name)
}

func (m *mockService) Dispatch(ctx context.Context, req backend.Request, r dispatch.Responder) error {
	if req.Model == "" {
		req.Model = "m1"
	}
	m.last = req
	if m.dispatchErr != nil {
		return m.dispatchErr
	}
	if !req.Stream {
		res := m.result
		if res == nil {
			res = &backend.Result{Content: "hi there", FinishReason: backend.FinishStop, Usage: backend.NewUsage(1, 2)}
		}
		return r.Complete(req, res)
	}
	events := m.events
	if events == nil {
		u := backend.NewUsage(1, 2)
		events = []backend.StreamEvent{
			{Chunk: backend.Chunk{Delta: "hi"}},
			{Chunk: backend.Chunk{Delta: " there", FinishReason: backend.FinishStop, Usage: &u}},
		}
	}
	ch := make(chan backend.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range events {
			if !backend.Send(ctx, ch, ev) {
				return
			}
		}
	}()
	return r.Stream(ctx, req, ch)
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

// sseData returns the payload of every data: frame in body.
func sseData(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, frame := range strings.Split(body, "\n\n") {
		if frame == "" {
			continue
		}
		if !strings.HasPrefix(frame, "data: ") {
			t.Fatalf("malformed frame %q", frame)
		}
		out = append(out, strings.TrimPrefix(frame, "data: "))
	}
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorBody {
	t.Helper()
	var env types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("error envelope: %v body=%s", err, w.Body.String())
	}
	return env.Error
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{types.NewModel("m1", "o", 1, "m1"), types.NewModel("m2", "o", 1, "m2")}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelList
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Object != "list" || len(body.Data) != 2 || body.Data[0].ID != "m1" || body.Data[1].ID != "m2" {
		t.Fatalf("unexpected listing: %+v", body)
	}
}

func TestModelsHandler_EmptyRegistryEncodesEmptyArray(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestGetModel(t *testing.T) {
	svc := &mockService{models: []types.Model{types.NewModel("org/m1", "o", 1, "m1")}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/org/m1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var m types.Model
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil || m.ID != "org/m1" {
		t.Fatalf("model: %+v err=%v", m, err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if e := decodeError(t, w); e.Code == nil || *e.Code != codeModelNotFound {
		t.Fatalf("error: %+v", e)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no backends") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var h types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil || h.Status != "ok" {
		t.Fatalf("health: %+v err=%v", h, err)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/engines", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if e := decodeError(t, w); e.Type != types.ErrTypeInvalidRequest {
		t.Fatalf("error: %+v", e)
	}
}

func TestNosniffHeader(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q", got)
	}
}

func TestCompletions_Sync(t *testing.T) {
	svc := &mockService{}
	w := postJSON(t, NewMux(svc), "/v1/completions", `{"model":"m1","prompt":"Hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.CompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "cmpl-") || resp.Object != "text_completion" || resp.Model != "m1" {
		t.Fatalf("envelope: %+v", resp)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Text != "hi there" || *resp.Choices[0].FinishReason != "stop" {
		t.Fatalf("choices: %+v", resp.Choices)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 3 {
		t.Fatalf("usage: %+v", resp.Usage)
	}
	if svc.last.Prompt != "Hello" || svc.last.MaxTokens != types.DefaultCompletionMaxTokens || svc.last.N != 1 {
		t.Fatalf("backend request: %+v", svc.last)
	}
}

func TestChatCompletions_Sync(t *testing.T) {
	svc := &mockService{}
	body := `{"model":"m1","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}],"max_tokens":8,"stop":"\n"}`
	w := postJSON(t, NewMux(svc), "/v1/chat/completions", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") || resp.Object != "chat.completion" {
		t.Fatalf("envelope: %+v", resp)
	}
	if resp.Choices[0].Message.Role != "assistant" || resp.Choices[0].Message.Content != "hi there" {
		t.Fatalf("message: %+v", resp.Choices[0].Message)
	}
	if len(svc.last.Messages) != 2 || svc.last.MaxTokens != 8 || len(svc.last.Stop) != 1 || svc.last.Stop[0] != "\n" {
		t.Fatalf("backend request: %+v", svc.last)
	}
}

func TestCompletions_Stream(t *testing.T) {
	w := postJSON(t, NewMux(&mockService{}), "/v1/completions", `{"model":"m1","prompt":"Hello","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%s", ct)
	}
	frames := sseData(t, w.Body.String())
	if len(frames) != 3 || frames[2] != doneSentinel {
		t.Fatalf("frames: %q", frames)
	}
	var id string
	var text strings.Builder
	finishes := 0
	for i, f := range frames[:2] {
		var c types.CompletionResponse
		if err := json.Unmarshal([]byte(f), &c); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if id == "" {
			id = c.ID
		} else if c.ID != id {
			t.Fatalf("chunk ids differ: %s vs %s", id, c.ID)
		}
		text.WriteString(c.Choices[0].Text)
		if c.Choices[0].FinishReason != nil {
			finishes++
			if i != 1 || c.Usage == nil {
				t.Fatalf("terminal chunk must be last and carry usage: %s", f)
			}
		}
	}
	if text.String() != "hi there" || finishes != 1 {
		t.Fatalf("text=%q finishes=%d", text.String(), finishes)
	}
}

func TestChatCompletions_StreamFirstChunkCarriesRole(t *testing.T) {
	body := `{"model":"m1","messages":[{"role":"user","content":"hi"}],"stream":true}`
	w := postJSON(t, NewMux(&mockService{}), "/v1/chat/completions", body)
	frames := sseData(t, w.Body.String())
	if len(frames) != 3 || frames[2] != doneSentinel {
		t.Fatalf("frames: %q", frames)
	}
	var first, last types.ChatCompletionChunk
	_ = json.Unmarshal([]byte(frames[0]), &first)
	_ = json.Unmarshal([]byte(frames[1]), &last)
	if first.Object != "chat.completion.chunk" || first.Choices[0].Delta.Role != "assistant" || first.Choices[0].Delta.Content != "hi" {
		t.Fatalf("first chunk: %s", frames[0])
	}
	if last.Choices[0].Delta.Role != "" || last.Choices[0].FinishReason == nil {
		t.Fatalf("last chunk: %s", frames[1])
	}
}

func TestStream_FailureBeforeFirstChunkIsJSONError(t *testing.T) {
	svc := &mockService{events: []backend.StreamEvent{{Err: context.DeadlineExceeded}}}
	w := postJSON(t, NewMux(svc), "/v1/completions", `{"prompt":"x","stream":true}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%s", ct)
	}
}

func TestStream_FailureAfterFirstChunkAbortsWithoutDone(t *testing.T) {
	svc := &mockService{events: []backend.StreamEvent{
		{Chunk: backend.Chunk{Delta: "partial"}},
		{Err: errBoom},
	}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/completions", bytes.NewBufferString(`{"prompt":"x","stream":true}`))
	req.Header.Set("Content-Type", "application/json")

	func() {
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Fatalf("expected ErrAbortHandler panic, got %v", rec)
			}
		}()
		NewMux(svc).ServeHTTP(w, req)
	}()
	body := w.Body.String()
	if !strings.Contains(body, "partial") {
		t.Fatalf("first chunk missing: %q", body)
	}
	if strings.Contains(body, doneSentinel) || strings.Contains(body, "finish_reason\":\"stop") {
		t.Fatalf("aborted stream must not look complete: %q", body)
	}
}

func TestStream_ProducerClosesWithoutTerminal(t *testing.T) {
	svc := &mockService{events: []backend.StreamEvent{}}
	w := postJSON(t, NewMux(svc), "/v1/completions", `{"prompt":"x","stream":true}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCompletions_BadJSON(t *testing.T) {
	w := postJSON(t, NewMux(&mockService{}), "/v1/completions", "not-json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if e := decodeError(t, w); !strings.Contains(e.Message, "invalid JSON body") {
		t.Fatalf("error: %+v", e)
	}
}

func TestCompletions_UnsupportedMediaType(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/completions", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCompletions_BodyTooLarge(t *testing.T) {
	big := `{"prompt":"` + strings.Repeat("a", (1<<20)+10) + `"}`
	w := postJSON(t, NewMux(&mockService{}), "/v1/completions", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for too-large body, got %d", w.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		path, body, param string
	}{
		{"/v1/completions", `{"prompt":[1,2,3]}`, "prompt"},
		{"/v1/completions", `{"prompt":"x","temperature":3}`, "temperature"},
		{"/v1/chat/completions", `{"messages":[]}`, "messages"},
		{"/v1/chat/completions", `{"messages":[{"role":"robot","content":"x"}]}`, "messages[0].role"},
	}
	for _, c := range cases {
		svc := &mockService{}
		w := postJSON(t, NewMux(svc), c.path, c.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: status=%d", c.path, c.body, w.Code)
		}
		e := decodeError(t, w)
		if e.Type != types.ErrTypeInvalidRequest || e.Param == nil || *e.Param != c.param {
			t.Fatalf("%s: error %+v", c.body, e)
		}
		if svc.last.Model != "" {
			t.Fatalf("%s: invalid request reached dispatch", c.body)
		}
	}
}

func TestAPIPrefix(t *testing.T) {
	SetAPIPrefix("/api/v2/")
	defer SetAPIPrefix("")
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCORS_OptIn(t *testing.T) {
	preflight := func(h http.Handler) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/completions", nil)
		req.Header.Set("Origin", "http://example.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		h.ServeHTTP(w, req)
		return w
	}
	if got := preflight(NewMux(&mockService{})).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("CORS must be off by default, got %q", got)
	}
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST"}, []string{"Content-Type", "Authorization"})
	defer SetCORSOptions(false, nil, nil, nil)
	if got := preflight(NewMux(&mockService{})).Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin=%q", got)
	}
}

func TestCompletions_StreamDropsChunksAfterTerminal(t *testing.T) {
	u := backend.NewUsage(1, 2)
	svc := &mockService{events: []backend.StreamEvent{
		{Chunk: backend.Chunk{Delta: "hi"}},
		{Chunk: backend.Chunk{FinishReason: backend.FinishStop, Usage: &u}},
		{Chunk: backend.Chunk{Delta: "late"}},
	}}
	w := postJSON(t, NewMux(svc), "/v1/completions", `{"prompt":"x","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	frames := sseData(t, w.Body.String())
	if len(frames) != 3 || frames[2] != doneSentinel {
		t.Fatalf("frames: %q", frames)
	}
	var last types.CompletionResponse
	if err := json.Unmarshal([]byte(frames[1]), &last); err != nil {
		t.Fatalf("terminal frame: %v", err)
	}
	if len(last.Choices) != 1 || last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "stop" {
		t.Fatalf("frame before [DONE] is not terminal: %s", frames[1])
	}
	if strings.Contains(w.Body.String(), "late") {
		t.Fatalf("chunk after terminal was written: %q", w.Body.String())
	}
}
