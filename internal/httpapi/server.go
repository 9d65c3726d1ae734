package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oaigate/internal/assembler"
	"oaigate/internal/backend"
	"oaigate/internal/dispatch"
	"oaigate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *dispatch.Dispatcher implements it.
type Service interface {
	ListModels() []types.Model
	DescribeModel(name string) (types.Model, error)
	Dispatch(ctx context.Context, req backend.Request, r dispatch.Responder) error
	Ready() bool
}

var _ Service = (*dispatch.Dispatcher)(nil)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	// text/event-stream is not in the compressible set, so streams pass through
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, types.ErrTypeInvalidRequest, "unknown route "+r.Method+" "+r.URL.Path, "", "")
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/models", listModelsHandler(svc))
		r.Get("/models/*", getModelHandler(svc))
		r.Post("/completions", completionsHandler(svc))
		r.Post("/chat/completions", chatCompletionsHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no backends registered"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// listModelsHandler godoc
// @Summary      List models
// @Description  Lists every registered model name in registration order.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelList
// @Router       /v1/models [get]
func listModelsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.NewModelList(svc.ListModels()))
	}
}

// getModelHandler godoc
// @Summary      Retrieve a model
// @Tags         models
// @Produce      json
// @Param        model  path      string  true  "Model name"
// @Success      200    {object}  types.Model
// @Failure      404    {object}  types.ErrorResponse
// @Router       /v1/models/{model} [get]
func getModelHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		m, err := svc.DescribeModel(name)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, types.ErrTypeInvalidRequest, err.Error(), "model", codeModelNotFound)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// completionsHandler godoc
// @Summary      Create a text completion
// @Description  With "stream": true the response is text/event-stream: one "data:" frame per chunk, then "data: [DONE]".
// @Tags         completions
// @Accept       json
// @Produce      json
// @Param        request  body      types.CompletionRequest  true  "Completion request"
// @Success      200      {object}  types.CompletionResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /v1/completions [post]
func completionsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.CompletionRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if err := body.Validate(); err != nil {
			status, env := classifyError(err)
			writeJSON(w, status, env)
			return
		}
		req := backend.Request{
			Model:            body.Model,
			Prompt:           body.Prompt.Text,
			Stream:           body.Stream,
			MaxTokens:        body.EffectiveMaxTokens(),
			Temperature:      body.Temperature,
			TopP:             body.TopP,
			N:                intOr(body.N, 1),
			Stop:             body.Stop,
			PresencePenalty:  body.PresencePenalty,
			FrequencyPenalty: body.FrequencyPenalty,
			User:             body.User,
		}
		serveGeneration(w, r, svc, assembler.KindCompletion, req)
	}
}

// chatCompletionsHandler godoc
// @Summary      Create a chat completion
// @Description  With "stream": true the response is text/event-stream of chat.completion.chunk frames, then "data: [DONE]".
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatCompletionRequest  true  "Chat completion request"
// @Success      200      {object}  types.ChatCompletionResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /v1/chat/completions [post]
func chatCompletionsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.ChatCompletionRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if err := body.Validate(); err != nil {
			status, env := classifyError(err)
			writeJSON(w, status, env)
			return
		}
		msgs := make([]backend.Message, 0, len(body.Messages))
		for _, m := range body.Messages {
			msgs = append(msgs, backend.Message{Role: m.Role, Content: m.Content, Name: m.Name})
		}
		req := backend.Request{
			Model:            body.Model,
			Messages:         msgs,
			Stream:           body.Stream,
			MaxTokens:        intOr(body.MaxTokens, 0),
			Temperature:      body.Temperature,
			TopP:             body.TopP,
			N:                intOr(body.N, 1),
			Stop:             body.Stop,
			PresencePenalty:  body.PresencePenalty,
			FrequencyPenalty: body.FrequencyPenalty,
			User:             body.User,
		}
		serveGeneration(w, r, svc, assembler.KindChat, req)
	}
}

// decodeBody enforces a JSON content type and the body size limit. It writes
// the error response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.EqualFold(ct, "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, types.ErrTypeInvalidRequest, "Content-Type must be application/json", "", "")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, types.ErrTypeInvalidRequest, "request body too large", "", "")
			return false
		}
		writeInvalid(w, "invalid JSON body: "+err.Error(), "")
		return false
	}
	return true
}

// serveGeneration dispatches req and renders the outcome. A stream that
// fails after its first frame is cut by aborting the handler, so clients
// never mistake it for a complete answer.
func serveGeneration(w http.ResponseWriter, r *http.Request, svc Service, kind assembler.Kind, req backend.Request) {
	rl := newReqLog(r)
	rl.begin(req.Model, req.Stream)

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if requestTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(requestTimeout)*time.Second)
		defer tcancel()
	}

	mode := "sync"
	if req.Stream {
		mode = "stream"
	}
	resp := newResponder(w, kind, rl)
	err := svc.Dispatch(ctx, req, resp)
	observeGeneration(resp.model, mode, err)
	if err == nil {
		rl.end(http.StatusOK, nil)
		return
	}
	// the client is gone: nobody is listening for an error body
	if r.Context().Err() != nil {
		rl.end(499, err)
		return
	}
	if resp.started {
		rl.end(http.StatusOK, err)
		panic(http.ErrAbortHandler)
	}
	if serverBaseCtx.Err() != nil {
		writeJSONError(w, http.StatusServiceUnavailable, types.ErrTypeServer, "server shutting down", "", "")
		rl.end(http.StatusServiceUnavailable, err)
		return
	}
	status, env := classifyError(err)
	writeJSON(w, status, env)
	rl.end(status, err)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
