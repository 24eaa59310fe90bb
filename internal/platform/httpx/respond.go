// Package httpx writes JSON and RFC7807 problem responses for the wash API.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ProblemType identifies a class of failure in the problem "type" member.
type ProblemType string

// Problem types returned by this service.
const (
	TypeValidation  ProblemType = "/problems/validation"
	TypeNotFound    ProblemType = "/problems/not-found"
	TypeUnavailable ProblemType = "/problems/unavailable"
	TypeTimeout     ProblemType = "/problems/timeout"
	TypeRateLimited ProblemType = "/problems/rate-limited"
	TypeInternal    ProblemType = "/problems/internal"
)

// maxBodyBytes caps request bodies; an event is a handful of short fields.
const maxBodyBytes = 64 << 10

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   ProblemType `json:"type"`
	Title  string      `json:"title"`
	Status int         `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, kind ProblemType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   kind,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes a single JSON value from the request body into target.
// Bodies over maxBodyBytes and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("httpx: body must hold a single json value")
	}
	return nil
}
