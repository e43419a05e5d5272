// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Handlers return a *ResponseBuilder and the route wrapper writes it, so
// session headers can be added after the handler has run.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/validation"
)

const (
	// HeaderWarning is set when a mutation was applied but its save was deferred.
	HeaderWarning = "X-Fintrack-Warning"
	// HeaderDegraded is set while a collection of the session failed to load.
	HeaderDegraded = "X-Fintrack-Degraded"

	warningSaveDeferred = "save-deferred"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageBody is returned by successful deletes.
type MessageBody struct {
	Message string `json:"message"`
	Removed int    `json:"removed,omitempty"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Deferred flags the response when the collection still has an unsaved change.
func (b *ResponseBuilder) Deferred(pending bool) *ResponseBuilder {
	if pending {
		b.headers[HeaderWarning] = warningSaveDeferred
	}
	return b
}

// StatusCode returns the status that Write will send.
func (b *ResponseBuilder) StatusCode() int { return b.statusCode }

// Cause is the error an error response was built from, if any.
func (b *ResponseBuilder) Cause() error { return b.err }

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(b.body); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(buf.Bytes())
}

// OK creates a 200 response with v as body.
func OK(v any) *ResponseBuilder {
	return NewResponse().JSON(v)
}

// Created creates a 201 response with v as body.
func Created(v any) *ResponseBuilder {
	return NewResponse().Status(http.StatusCreated).JSON(v)
}

// Deleted creates the 200 confirmation for a delete.
func Deleted(message string, removed int) *ResponseBuilder {
	return OK(MessageBody{Message: message, Removed: removed})
}

// ErrorResponse creates an error response with the given status and message.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

// FromError maps a domain error to its HTTP status and JSON body.
func FromError(err error) *ResponseBuilder {
	b := fromError(err)
	b.err = err
	return b
}

func fromError(err error) *ResponseBuilder {
	var verr *validation.Error
	switch {
	case errors.Is(err, errMalformedBody):
		return ErrorResponse(http.StatusBadRequest, err.Error())
	case errors.As(err, &verr):
		return NewResponse().
			Status(http.StatusUnprocessableEntity).
			JSON(ErrorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidParent):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return ErrorResponse(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, core.ErrUnavailable):
		return ErrorResponse(http.StatusServiceUnavailable, "collection temporarily unavailable, retry later")
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal server error")
	}
}
