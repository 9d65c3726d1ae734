package backend

import (
	"errors"
	"fmt"
)

// unknownModelError signals a model name with no registered backend.
type unknownModelError struct{ model string }

func (e unknownModelError) Error() string {
	if e.model == "" {
		return "model not specified and no default model configured"
	}
	return fmt.Sprintf("model '%s' not found", e.model)
}

// ErrUnknownModel returns an error for a model name absent from the registry.
func ErrUnknownModel(model string) error { return unknownModelError{model: model} }

// IsUnknownModel reports whether err (or anything it wraps) is an unknown-model error.
func IsUnknownModel(err error) bool {
	var e unknownModelError
	return errors.As(err, &e)
}

// invalidRequestError is raised by a backend that cannot honor the request as
// given, e.g. a parameter outside the range it supports.
type invalidRequestError struct {
	param string
	msg   string
}

func (e invalidRequestError) Error() string { return e.msg }

// ErrInvalidParam returns a backend rejection tied to a request parameter.
// param may be empty when the rejection is not about a single field.
func ErrInvalidParam(param, format string, args ...any) error {
	return invalidRequestError{param: param, msg: fmt.Sprintf(format, args...)}
}

// IsInvalidRequest reports whether err is a backend rejection of the request.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// InvalidParam returns the offending parameter of a backend rejection, if any.
func InvalidParam(err error) string {
	var e invalidRequestError
	if errors.As(err, &e) {
		return e.param
	}
	return ""
}

// ErrIncompleteStream is reported when a producer closes its channel without
// sending a terminal chunk.
var ErrIncompleteStream = errors.New("stream ended without a terminal chunk")
