package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the envelope of every JSON response.
type JSONResponse struct {
	OK    bool         `json:"ok"`
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failure to the client.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

// WithJSONStatus overrides the status code.
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// JSON renders {"ok":true,"data":v}. A nil v renders {"ok":true}.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{OK: true, Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OK renders {"ok":true}.
func OK() Response {
	return JSON(nil)
}

// Fail renders {"ok":false,"error":detail} with status.
func Fail(status int, detail ErrorDetail) Response {
	return &jsonResponse{status: status, body: JSONResponse{Error: &detail}}
}

// JSONError renders err. HTTPError keeps its status and key; any other error
// becomes a generic 500 so internal details never reach the client.
func JSONError(err error, opts ...JSONOption) Response {
	httpErr := ErrInternal
	var he HTTPError
	if errors.As(err, &he) {
		httpErr = he
	}

	message := httpErr.Message
	if message == "" {
		message = http.StatusText(httpErr.Code)
	}

	r := &jsonResponse{
		status: httpErr.Code,
		body:   JSONResponse{Error: &ErrorDetail{Code: httpErr.Key, Message: message}},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
