package main

import (
	"errors"
	"net/http"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
)

type HTTPError struct {
	Err     error
	Message string
	Code    int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func badRequest(message string, err error) *HTTPError {
	return &HTTPError{Err: err, Message: message, Code: http.StatusBadRequest}
}

// errorBody is the JSON sent for failed requests.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps handler errors to a status code and a client-safe body.
func statusFor(err error) (int, errorBody) {
	var httpErr *HTTPError
	var validationErr *node.ValidationError
	var relationErr *node.RelationError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, errorBody{Error: httpErr.Error()}
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "Not found"}
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorBody{Error: "Validation failed", Fields: validationErr.Fields}
	case errors.As(err, &relationErr):
		return http.StatusUnprocessableEntity, errorBody{Error: relationErr.Error()}
	case errors.Is(err, node.ErrIDAssigned):
		return http.StatusConflict, errorBody{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)}
}
