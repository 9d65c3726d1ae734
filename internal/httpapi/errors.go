package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"oaigate/internal/backend"
	"oaigate/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// Error codes reported in the envelope's "code" field.
const (
	codeModelNotFound = "model_not_found"
	codeTimeout       = "timeout"
)

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an OpenAI-style error envelope.
func writeJSONError(w http.ResponseWriter, status int, typ, msg, param, code string) {
	writeJSON(w, status, types.NewErrorResponse(typ, msg, param, code))
}

func writeInvalid(w http.ResponseWriter, msg, param string) {
	writeJSONError(w, http.StatusBadRequest, types.ErrTypeInvalidRequest, msg, param, "")
}

// classifyError maps a dispatch error to an HTTP status and envelope.
func classifyError(err error) (int, types.ErrorResponse) {
	var reqErr *types.RequestError
	var he HTTPError
	switch {
	case backend.IsUnknownModel(err):
		return http.StatusBadRequest, types.NewErrorResponse(types.ErrTypeInvalidRequest, err.Error(), "model", codeModelNotFound)
	case backend.IsInvalidRequest(err):
		return http.StatusBadRequest, types.NewErrorResponse(types.ErrTypeInvalidRequest, err.Error(), backend.InvalidParam(err), "")
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, types.NewErrorResponse(types.ErrTypeInvalidRequest, reqErr.Message, reqErr.Param, "")
	case errors.As(err, &he):
		typ := types.ErrTypeServer
		if he.StatusCode() < 500 {
			typ = types.ErrTypeInvalidRequest
		}
		return he.StatusCode(), types.NewErrorResponse(typ, he.Error(), "", "")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, types.NewErrorResponse(types.ErrTypeServer, "generation timed out", "", codeTimeout)
	default:
		return http.StatusInternalServerError, types.NewErrorResponse(types.ErrTypeServer, fmt.Sprintf("generation failed: %v", err), "", "")
	}
}

// outcome is the generations_total label for a finished dispatch.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case backend.IsUnknownModel(err):
		return "unknown_model"
	case backend.IsInvalidRequest(err):
		return "rejected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, errStreamAborted):
		return "aborted"
	default:
		return "error"
	}
}
