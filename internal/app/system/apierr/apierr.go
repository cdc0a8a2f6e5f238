// Package apierr carries business failures from the calendar core to the
// HTTP layer as a machine-readable code, a status and a message.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Error is a failure with a symbolic code. Fields are merged into the JSON
// body next to "error" and "message".
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// New returns an Error with the given status, code and message.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// With returns a copy of e carrying one more field.
func (e *Error) With(key string, value any) *Error {
	out := *e
	out.Fields = make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	out.Fields[key] = value
	return &out
}

func BadRequest(code, message string) *Error { return New(http.StatusBadRequest, code, message) }
func Unauthorized(message string) *Error   { return New(http.StatusUnauthorized, "UNAUTHORIZED", message) }
func Forbidden(message string) *Error      { return New(http.StatusForbidden, "FORBIDDEN", message) }
func NotFound(code, message string) *Error { return New(http.StatusNotFound, code, message) }
func Conflict(code, message string) *Error { return New(http.StatusConflict, code, message) }
func Locked(code, message string) *Error   { return New(http.StatusLocked, code, message) }
func Internal(code, message string) *Error { return New(http.StatusInternalServerError, code, message) }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, or "INTERNAL" for anything else.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return "INTERNAL"
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"ok": true} merged with fields.
func OK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// Write renders err. An *Error keeps its status and code; anything else is
// logged and answered with a generic 500.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	e, ok := As(err)
	if !ok {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		e = Internal("INTERNAL", "internal error")
	}
	body := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		body[k] = v
	}
	body["error"] = e.Code
	body["message"] = e.Message
	WriteJSON(w, e.Status, body)
}
